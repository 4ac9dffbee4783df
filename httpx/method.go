package httpx

// Method is a request verb recognized by the server.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPut
	MethodPost
	MethodDelete
	MethodHead
	MethodOptions
	MethodTrace
	MethodConnect
	MethodPatch
)

var methodNames = [...]string{
	MethodGet:     "GET",
	MethodPut:     "PUT",
	MethodPost:    "POST",
	MethodDelete:  "DELETE",
	MethodHead:    "HEAD",
	MethodOptions: "OPTIONS",
	MethodTrace:   "TRACE",
	MethodConnect: "CONNECT",
	MethodPatch:   "PATCH",
}

func (m Method) String() string {
	if m <= 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// ParseMethod looks up a verb exactly as it appears on the request line.
func ParseMethod(s string) (Method, bool) {
	for m := MethodGet; int(m) < len(methodNames); m++ {
		if methodNames[m] == s {
			return m, true
		}
	}
	return 0, false
}
