package twitter

import "strings"

// SearchLanguage restricts every campaign query to one language.
const SearchLanguage = "en"

// BuildQuery assembles a platform search query that matches posts carrying
// every tag of the group, restricted to SearchLanguage. Tags are lower-cased
// and prefixed with # if the configuration stored them bare.
func BuildQuery(tags []string) string {
	var b strings.Builder

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}

		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}

		b.WriteString(tag)
		b.WriteString(" ")
	}

	b.WriteString("lang:")
	b.WriteString(SearchLanguage)

	return b.String()
}
