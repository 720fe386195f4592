// Package credential builds typed auth credentials from secret payloads and
// renders them into HTTP headers.
//
// A payload is a flat string map with recognized fields token, username, and
// password. Build selects the credential shape from the auth mode:
//
//	cred, err := credential.Build(payload, credential.AuthModeBearer)
//	if err != nil {
//		return err
//	}
//	req.Header.Set(headerName, cred.HeaderValue(headerName))
//
// The Authorization header carries the scheme prefix ("Bearer <token>",
// "Basic <base64>"); custom headers carry the bare value. Credentials are
// immutable; String() masks secret material so credentials are safe to log.
package credential
