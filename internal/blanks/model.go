package blanks

import "regexp"

// Scope distinguishes organization-wide blanks from blanks owned by one policy.
type Scope string

const (
	ScopeCommon Scope = "common"
	ScopePolicy Scope = "policy"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeCommon || s == ScopePolicy
}

// Blank is one fill-in-the-blank question. Its ID doubles as the template placeholder key.
type Blank struct {
	ID           string
	Question     string
	Scope        Scope
	PolicyID     string
	DefaultValue *string
	Help         string
	Position     int
}

// Default returns the registry default, if any.
func (b Blank) Default() (string, bool) {
	if b.DefaultValue == nil {
		return "", false
	}
	return *b.DefaultValue, true
}

// Policy is a document template the blanks feed into.
type Policy struct {
	ID       string
	Title    string
	Position int
}

// Filter narrows ListBlanks. Zero value lists every blank.
type Filter struct {
	Scope    Scope
	PolicyID string
}

var idPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)

// ValidID reports whether id can be used as a blank id and template key.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
