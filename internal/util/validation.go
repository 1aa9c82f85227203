package util

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return false
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
