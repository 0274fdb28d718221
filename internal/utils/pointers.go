package utils

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
