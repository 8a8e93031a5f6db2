package domain

import "encoding/json"

const (
	// ResponseCodeOK is the envelope code the API uses for success.
	ResponseCodeOK  = 200
	TokenTypeBearer = "Bearer"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// BaseResponse is the {code, message} envelope every API response carries.
type BaseResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r BaseResponse) OK() bool { return r.Code == ResponseCodeOK }

type LoginResponse struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    TokenData `json:"data"`
}

type UserInfoResponse struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    UserRecord `json:"data"`
}

type UserListResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    []UserRecord `json:"data"`
}

// Envelope is used when the payload shape is not known up front.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
