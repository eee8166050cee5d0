package logger

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/domain"
)

// Stage tags a log line with a pipeline stage.
func Stage(s domain.Stage) zap.Field { return zap.String("stage", string(s)) }

// Verb tags a log line with a verb reference such as "present.markdown".
func Verb(ref string) zap.Field { return zap.String("verb", ref) }

// Identifier tags a log line with the unit identifier or path being processed.
func Identifier(id string) zap.Field { return zap.String("identifier", id) }
