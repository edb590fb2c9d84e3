package session

// createMeetingRequest represents the request to create a new meeting
type createMeetingRequest struct {
	Username string `json:"Username" example:"alice" minLength:"1" maxLength:"20"` // Display name of the meeting admin
	Password string `json:"Password" example:"pass1" minLength:"4" maxLength:"20"` // Shared meeting password
}

// signInRequest represents the request to join an existing meeting
type signInRequest struct {
	Meeting  string `json:"Meeting" example:"a1b2c3d4" minLength:"8" maxLength:"8"` // 8-character meeting id
	Username string `json:"Username" example:"bob" minLength:"1" maxLength:"20"`    // Display name to join with
	Password string `json:"Password" example:"pass1" minLength:"4" maxLength:"20"`  // Shared meeting password
}

// sessionResponse is returned by both create-meeting and sign-in: the echoed
// identity plus a signed bearer token for the realtime channel
type sessionResponse struct {
	Username string `json:"Username" example:"alice"`  // Echoed username
	Meeting  string `json:"Meeting" example:"a1b2c3d4"` // Meeting id
	Admin    bool   `json:"Admin" example:"true"`      // Whether this session created the meeting
	JWT      string `json:"JWT"`                       // Signed session token
}
