package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// state is shared by a root logger and every logger derived from it.
type state struct {
	// Mutex to prevent messages from different goroutines from interleaving.
	sync.Mutex

	out     io.Writer
	noColor bool

	defaultLevel Level
	tagLevels    map[string]Level
}

func (s *state) setDefault(level Level) {
	s.Lock()
	s.defaultLevel = level
	s.Unlock()
}

func (s *state) setTag(tag string, level Level) {
	s.Lock()
	s.tagLevels[tag] = level
	s.Unlock()
}

func (s *state) level(tag string) Level {
	s.Lock()
	defer s.Unlock()
	if level, ok := s.tagLevels[tag]; ok {
		return level
	}
	return s.defaultLevel
}

type Logger struct {
	// Tag used to filter and classify log messages.
	Tag string

	s *state
}

var root = &state{
	out:          os.Stderr,
	defaultLevel: Info,
	tagLevels:    make(map[string]Level),
}

// Write to stderr by default.
var DefaultLogger = &Logger{s: root}

// New returns an independent root logger writing to out, with colour output
// disabled. Mostly useful in tests.
func New(out io.Writer, level Level) *Logger {
	return &Logger{s: &state{
		out:          out,
		noColor:      true,
		defaultLevel: level,
		tagLevels:    make(map[string]Level),
	}}
}

// Override the destination for this logger and all loggers sharing its root.
func (log *Logger) SetDestination(out io.Writer) {
	log.s.Lock()
	log.s.out = out
	log.s.Unlock()
}

// Derive a new logger with the given tag. The level is looked up on each
// message, so later Configure() calls apply to existing loggers.
func (log *Logger) WithTag(tag string) *Logger {
	return &Logger{Tag: tag, s: log.s}
}

// Enabled reports whether a message at the given level would be written.
func (log *Logger) Enabled(level Level) bool {
	return level <= log.s.level(log.Tag)
}

// Wrapper for []byte that implements io.Writer. Simpler and cheaper than
// bytes.Buffer.
type buffer []byte

func (b *buffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

func (b *buffer) writeString(s string) {
	*b = append(*b, s...)
}

func (b *buffer) writeByte(c byte) {
	*b = append(*b, c)
}

// A global buffer pool, shared across all loggers. Initial capacity is 256 to
// accommodate *most* log lines.
var bufPool = sync.Pool{
	New: func() interface{} {
		return make(buffer, 0, 256)
	},
}

// Log a message at the given level. Include the file and line number from
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if !log.Enabled(level) {
		return
	}

	buf := bufPool.Get().(buffer)
	defer func() { bufPool.Put(buf[:0]) }()

	noColor := log.s.noColor

	buf.writeString(paint(colorStamp, noColor, time.Now().Format(timestampFormat)))

	// Get the caller of Error()/Warn()/Info()/etc.
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}
	prefix := fmt.Sprintf(" %c/%s[%s:%d] ", level.letter(), log.Tag, filepath.Base(file), line)
	buf.writeString(paint(level.color(), noColor, prefix))

	fmt.Fprintf(&buf, format, a...)

	// Append newline if necessary.
	if n := len(format); n == 0 || format[n-1] != '\n' {
		buf.writeByte('\n')
	}

	log.s.Lock()
	if _, err := log.s.out.Write(buf); err != nil {
		log.s.Unlock()
		panic(fmt.Sprintf("Failed to log to %v: %v", log.s.out, err))
	}
	log.s.Unlock()
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}
