// Package lmssdk is a typed client for the MinistryLearn LMS REST API.
//
// A Client carries the session stored in a tokenstore.Store. Every request
// sends the stored access token as a bearer credential, or no Authorization
// header when none is stored.
//
// When the API answers 401 the client exchanges the refresh token at
// POST /auth/refresh and retries the original request exactly once with the
// new access token. The refresh exchange never triggers a refresh of its
// own. If no refresh token is stored, or the exchange fails for any reason,
// both tokens are removed from the store, the optional session expired hook
// runs and the caller receives a *SessionExpiredError. A retried request
// that is rejected again is returned as a plain *APIError and the session is
// left as it is.
//
// Each logical request carries one X-Request-ID (a ULID) across its retry
// and is wrapped in one OpenTelemetry span.
package lmssdk
