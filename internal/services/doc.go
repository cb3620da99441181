// Package services defines the [PlaylistSource] and [Marketplace] interfaces and implements them for Spotify and Bandcamp.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with the OAuth2 client-credentials grant (app id and secret, no user login).
// The [oauth2] client caches the access token and fetches a new one when it expires.
// Playlists are paged 100 items at a time and only the album id, album name and artist names are requested.
//
// # Bandcamp Implementation
//
// [BandcampService] scrapes two HTML pages with goquery:
//   - the public search page, where the first ".searchresult" link is the match
//   - the user's collection page, authenticated with the "identity" cookie, where ".item-link" anchors are purchases
//
// Searches share one [rate.Limiter] (5 per second by default, burst 1) and block until a slot is free.
//
// # HTTP Policy
//
// Timeouts come from the [http.Client] passed in. [RetryPolicy] retries transport errors, 429 and 5xx with linear backoff;
// its zero value never retries.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthFailed] : token exchange failed
//   - [shared.ErrNotAuthenticated] : request without or with a rejected token
//   - [shared.ErrAPIRequest] : transport failure or unexpected status
//   - [shared.ErrPlaylistNotFound] : unknown playlist id
//   - [shared.ErrParse] : response body does not have the expected shape
package services
