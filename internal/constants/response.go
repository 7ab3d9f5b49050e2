package constants

// Standard Response Field Keys
const (
	ResponseFieldOK      = "ok"
	ResponseFieldData    = "data"
	ResponseFieldError   = "error"
	ResponseFieldCode    = "code"
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
)

// Response Format Functions
//
// Every endpoint answers with the same envelope:
//
//	{ "ok": true,  "data": ... }
//	{ "ok": false, "error": { "code": ..., "message": ..., "details": ... } }

func BuildSuccessResponse(data any) map[string]any {
	return map[string]any{
		ResponseFieldOK:   true,
		ResponseFieldData: data,
	}
}

func BuildMessageResponse(message string) map[string]any {
	return BuildSuccessResponse(map[string]any{
		ResponseFieldMessage: message,
	})
}

func BuildErrorResponse(code, message string, details any) map[string]any {
	errBody := map[string]any{
		ResponseFieldCode:    code,
		ResponseFieldMessage: message,
	}

	if details != nil {
		errBody[ResponseFieldDetails] = details
	}

	return map[string]any{
		ResponseFieldOK:    false,
		ResponseFieldError: errBody,
	}
}
