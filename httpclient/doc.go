// Package httpclient is the console's request pipeline. Every API wrapper
// goes through [Client]: it attaches the bearer token, hands 2xx bodies back
// untouched, and sorts failures into three classes checked in order:
//
//  1. 401: the token store is cleared, the session-expired hook fires (only
//     if a token was actually held) and [SessionExpiredError] is returned.
//  2. A JSON body with a "detail" field: [DomainError] is returned as-is,
//     with no notification, so the caller decides what to show.
//  3. Anything else: a generic error notification is shown and
//     [TransportError] is returned.
package httpclient
