package result

import "time"

// Reason classifies why a (sample, backend) pair failed.
type Reason string

const (
	CompileError           Reason = "CompileError"
	AssembleOrLinkError    Reason = "AssembleOrLinkError"
	RunError               Reason = "RunError"
	MissingAnswerFile      Reason = "MissingAnswerFile"
	OutputMismatch         Reason = "OutputMismatch"
	UnknownBackend         Reason = "UnknownBackend"
	EnvironmentUnsupported Reason = "EnvironmentUnsupported"
	// InternalError marks a runner bug (a recovered panic), not a property
	// of the sample or toolchain.
	InternalError Reason = "InternalError"
)

var reasonText = map[Reason]string{
	CompileError:           "compile error",
	AssembleOrLinkError:    "assemble/link error",
	RunError:               "run error",
	MissingAnswerFile:      "no answer file",
	OutputMismatch:         "output mismatch",
	UnknownBackend:         "unknown backend",
	EnvironmentUnsupported: "environment unsupported",
	InternalError:          "internal error",
}

// Text is the short human label printed next to failing samples.
func (r Reason) Text() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return string(r)
}

// Outcome is the final verdict for one sample on one backend.
type Outcome struct {
	Sample     string        `json:"sample"`
	Backend    string        `json:"backend"`
	Success    bool          `json:"success"`
	Reason     Reason        `json:"reason,omitempty"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

func Pass(sample, backend string, d time.Duration) Outcome {
	return Outcome{Sample: sample, Backend: backend, Success: true, Duration: d}
}

func Fail(sample, backend string, reason Reason, diagnostic string, d time.Duration) Outcome {
	return Outcome{
		Sample:     sample,
		Backend:    backend,
		Reason:     reason,
		Diagnostic: diagnostic,
		Duration:   d,
	}
}
