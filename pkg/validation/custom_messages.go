package validation

func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"Email": {
			"required": "email must not be empty",
			"email":    "email is not a valid address",
		},
		"Password": {
			"required": "password must not be empty",
			"min":      "password must be at least 8 characters",
			"max":      "password must be at most 100 characters",
		},
		"Name": {
			"required": "name must not be empty",
			"min":      "name must be at least 2 characters",
		},
		"Role": {
			"required": "role must not be empty",
			"oneof":    "role must be PARENT or CHILD",
		},
		"Provider": {
			"required": "provider must not be empty",
			"oneof":    "provider must be GOOGLE or APPLE",
		},
		"IDToken": {
			"required": "id_token must not be empty",
		},
		"RefreshToken": {
			"required": "refresh_token must not be empty",
		},
	}
	return customValidationMessages[field]
}
