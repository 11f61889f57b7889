package resolver

// codeTable maps normalised codes to UUIDs.
type codeTable struct {
	values map[string]string
}

func newCodeTable() *codeTable {
	return &codeTable{values: make(map[string]string)}
}

// Put sets key to value.
func (t *codeTable) Put(key, value string) {
	t.values[key] = value
}

// Get returns the value for key. The empty key is never present.
func (t *codeTable) Get(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	v, ok := t.values[key]
	return v, ok
}

func (t *codeTable) Len() int {
	return len(t.values)
}
