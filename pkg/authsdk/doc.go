/*
Package authsdk provides a client SDK for the CertTrack authentication service.

# Overview

The service authenticates browsers with an HttpOnly session cookie named
"token". SDKClient carries that cookie in its own cookie jar, so a client
behaves like one browser profile: Login stores the cookie, Me and Logout
send it back.

	client := authsdk.NewSDKClient("http://localhost:5000")

	// Registration does not log in.
	_, err := client.Register(ctx, "Ada Lovelace", "ada@x.com", "secret1")

	session, err := client.Login(ctx, "ada@x.com", "secret1")
	fmt.Println("Logged in as:", session.User().Name)

# Session

Session caches the user returned by Login for UI gating. The cache is a
mirror, not an authority: call Refresh to ask the server, which clears the
session when the cookie has expired.

	if _, err := session.Refresh(ctx); authsdk.IsUnauthorized(err) {
		// cookie expired, log in again
	}

	err = session.Logout(ctx)

Logout only clears the cookie. The server keeps no session table, so a copy
of the token taken before logout stays valid until it expires.

# Error Handling

Every non-2xx response is returned as *APIError with the status code and the
server's message. IsUnauthorized and IsBadRequest cover the common checks.

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
