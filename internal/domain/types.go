package domain

// SessionState models the voice command lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateStarting   SessionState = "starting"
	SessionStateListening  SessionState = "listening"
	SessionStateProcessing SessionState = "processing"
	SessionStateError      SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonMounted          SessionStateReason = "mounted"
	SessionReasonUnsupported      SessionStateReason = "unsupported"
	SessionReasonStarting         SessionStateReason = "starting"
	SessionReasonStartFailed      SessionStateReason = "start_failed"
	SessionReasonListening        SessionStateReason = "listening"
	SessionReasonProcessing       SessionStateReason = "processing"
	SessionReasonWakeWordRequired SessionStateReason = "wake_word_required"
	SessionReasonNoSpeech         SessionStateReason = "no_speech"
	SessionReasonAccessDenied     SessionStateReason = "access_denied"
	SessionReasonRecognitionError SessionStateReason = "recognition_error"
	SessionReasonResponseReady    SessionStateReason = "response_ready"
	SessionReasonDispatchFailed   SessionStateReason = "dispatch_failed"
	SessionReasonReady            SessionStateReason = "ready"
)

// CaptureErrorCode is the coded reason a capture capability reports on failure.
// Values follow the Web Speech API error names.
type CaptureErrorCode string

const (
	CaptureErrorNoSpeech     CaptureErrorCode = "no-speech"
	CaptureErrorNotAllowed   CaptureErrorCode = "not-allowed"
	CaptureErrorAudioCapture CaptureErrorCode = "audio-capture"
	CaptureErrorNetwork      CaptureErrorCode = "network"
	CaptureErrorAborted      CaptureErrorCode = "aborted"
)

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// RecognitionResult is what a capture capability hands to its listener.
type RecognitionResult struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// CommandResult is the command endpoint's reply.
type CommandResult struct {
	ResponseText string `json:"responseText"`
}

// VoiceStateChange is the host notification sent when capture begins.
type VoiceStateChange struct {
	Listening  bool   `json:"listening"`
	Transcript string `json:"transcript"`
}

// Status summarizes the widget as the host should render it.
type Status struct {
	SessionID  string             `json:"sessionId"`
	State      SessionState       `json:"state"`
	Reason     SessionStateReason `json:"reason"`
	Message    string             `json:"message"`
	Transcript string             `json:"transcript,omitempty"`
	Response   string             `json:"response,omitempty"`
	Listening  bool               `json:"listening"`
	Supported  bool               `json:"supported"`
}
