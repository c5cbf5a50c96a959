package twitter

// Session is an authenticated handle for one account, usable to issue one
// search request at a time. Exhausted sessions stay bound to the client but
// are skipped until the pool is rebuilt.
type Session struct {
	Username    string
	AuthToken   string
	CSRFToken   string
	AuthCookies string
	Exhausted   bool
}
