package common

// Cookie names carrying the owner's session between the browser and the admin panel.
const (
	AccessTokenCookieName  = "portfolio_access"
	RefreshTokenCookieName = "portfolio_refresh"
)

// NoticeNotAuthorized is the notice key attached to the redirect issued when a
// signed-in caller is not the site owner.
const NoticeNotAuthorized = "not-authorized"
