package stats

// ResolveName applies the display precedence shared by every renderer:
// override, then the name stored with the signup, then the raw user id.
func ResolveName(overrides map[string]string, userID, stored string) string {
	if name, ok := overrides[userID]; ok && name != "" {
		return name
	}
	if stored != "" {
		return stored
	}
	return userID
}
