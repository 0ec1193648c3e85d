// Package trainservice is the HTTP client for the external train service.
//
// The train service owns train arrivals and departures; Wagonloader Core
// only notifies it of inbound trains before a loading session starts. The
// client treats 200 and 201 as acceptance and anything else as rejection,
// surfaced as ErrRegistrationRejected with the response status and body.
package trainservice
