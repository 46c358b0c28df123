package oauth

import (
	"encoding/base64"
	"encoding/json"
)

// cameFromField is the single semantic field carried through the OAuth2
// state parameter: the URL the user came from when login started.
const cameFromField = "came_from"

// EncodeState serializes the came-from URL into the opaque state token
// round-tripped through the authorization server: JSON then base64.
// The value is not signed; it only ever carries a URL that was already
// sanitized by SafeCameFrom.
func EncodeState(cameFrom string) string {
	payload, _ := json.Marshal(map[string]string{cameFromField: cameFrom})
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodeState reverses EncodeState. It returns "/" when the came_from
// field is absent (or not a string, which only a forged token produces)
// and a *DecodeError when the token is not valid base64 or valid JSON.
func DecodeState(state string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		return "", &DecodeError{Err: err}
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", &DecodeError{Err: err}
	}

	cameFrom, ok := claims[cameFromField].(string)
	if !ok {
		return "/", nil
	}
	return cameFrom, nil
}
