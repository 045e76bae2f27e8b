package models

type User struct {
	UserID   string
	Email    string
	PassHash []byte
	Name     string
	Birth    string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Profile struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Birth  string `json:"birth"`
}

// * Message — конверт письма для очереди отправки
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
