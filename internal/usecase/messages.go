package usecase

import "voicewidget/internal/domain"

// StatusMessage returns the user-facing text for a transition reason.
func StatusMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonMounted:
		return "Ready"
	case domain.SessionReasonUnsupported:
		return "Voice recognition not supported in this environment"
	case domain.SessionReasonStarting:
		return "Starting..."
	case domain.SessionReasonStartFailed:
		return "Failed to start listening"
	case domain.SessionReasonListening:
		return `Listening... Say "Jarvis [command]"`
	case domain.SessionReasonProcessing:
		return "Processing command..."
	case domain.SessionReasonWakeWordRequired:
		return `Please say "Jarvis" followed by your command`
	case domain.SessionReasonNoSpeech:
		return "No speech detected"
	case domain.SessionReasonAccessDenied:
		return "Microphone access denied"
	case domain.SessionReasonRecognitionError:
		return "Voice recognition error"
	case domain.SessionReasonResponseReady:
		return "Ready"
	case domain.SessionReasonDispatchFailed:
		return "Error occurred"
	case domain.SessionReasonReady:
		return "Click microphone to speak"
	default:
		return ""
	}
}

func captureErrorReason(code domain.CaptureErrorCode) domain.SessionStateReason {
	switch code {
	case domain.CaptureErrorNoSpeech:
		return domain.SessionReasonNoSpeech
	case domain.CaptureErrorNotAllowed:
		return domain.SessionReasonAccessDenied
	default:
		return domain.SessionReasonRecognitionError
	}
}
