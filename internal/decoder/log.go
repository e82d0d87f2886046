package decoder

import (
	"github.com/lanikai/alohadecode/internal/logging"
)

var log = logging.DefaultLogger.WithTag("decoder")
