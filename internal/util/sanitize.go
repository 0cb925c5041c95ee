package util

import "os"

// MaskFIN hides all but the last four digits of a national ID number for log
// output.
func MaskFIN(fin string) string {
	if len(fin) <= 4 {
		return "****"
	}
	return "********" + fin[len(fin)-4:]
}

// MaskPhone hides all but the last three digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 3 {
		return "***"
	}
	return "*******" + phone[len(phone)-3:]
}

// GetEnv reads an environment variable with a fallback.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
