package rtp

import (
	"github.com/lanikai/alohadecode/internal/logging"
)

var log = logging.DefaultLogger.WithTag("rtp")
