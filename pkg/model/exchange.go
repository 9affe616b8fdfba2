package model

// Exchange is a pair of user query and bot response in conversation history
type Exchange struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}
