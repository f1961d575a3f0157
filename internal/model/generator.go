package model

// GenerateRequest represents a password generation request.
// The selection is explicit: an omitted class flag means the class is not used.
type GenerateRequest struct {
	Length    int  `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Numbers   bool `json:"numbers"`
	Symbols   bool `json:"symbols"`
	Count     int  `json:"count"`
}

// GenerateResponse represents a password generation response.
// Password repeats the first entry of Passwords.
type GenerateResponse struct {
	Password     string   `json:"password"`
	Passwords    []string `json:"passwords"`
	Length       int      `json:"length"`
	AlphabetSize int      `json:"alphabet_size"`
}

// ClassInfo describes one character class and its alphabet.
type ClassInfo struct {
	Name     string `json:"name"`
	Alphabet string `json:"alphabet"`
	Size     int    `json:"size"`
}

// ClassesResponse lists the available classes and the accepted length range.
type ClassesResponse struct {
	Classes        []ClassInfo `json:"classes"`
	DefaultClasses []string    `json:"default_classes"`
	MinLength      int         `json:"min_length"`
	MaxLength      int         `json:"max_length"`
	DefaultLength  int         `json:"default_length"`
}
