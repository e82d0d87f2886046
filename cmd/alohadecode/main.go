package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/alohadecode"
	"github.com/lanikai/alohadecode/internal/logging"
)

var log = logging.DefaultLogger.WithTag("main")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}
	if flagInput == "" {
		help()
		os.Exit(2)
	}

	cfg := alohadecode.DefaultConfig()
	if flagConfig != "" {
		var err error
		if cfg, err = alohadecode.LoadConfig(flagConfig); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if flagWidth > 0 {
		cfg.Width = flagWidth
	}
	if flagHeight > 0 {
		cfg.Height = flagHeight
	}
	if flagFFmpeg != "" {
		cfg.FFmpegPath = flagFFmpeg
	}
	if flagNoHardware {
		cfg.Hardware.Enabled = false
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	kind, err := alohadecode.ParseStreamKind(flagKind)
	if err != nil {
		log.Fatalf("%v", err)
	}
	key := alohadecode.StreamKey{Participant: flagParticipant, Kind: kind}

	pipeline, err := alohadecode.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go watchReady(ctx, pipeline, key)

	var written <-chan struct{}
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			pipeline.Close()
			log.Fatalf("%v", err)
		}
		written = writeOutput(pipeline.SubscribeRGB(key, 8), f, flagOutput)
	}

	if flagPreview != "" {
		srv := &http.Server{
			Addr:    flagPreview,
			Handler: (&previewServer{pipeline: pipeline, key: key}).routes(),
		}
		go func() {
			log.Info("Preview at http://%s/", flagPreview)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("preview: %v", err)
			}
		}()
		defer srv.Close()
	}

	if err := replay(ctx, pipeline, key, flagInput, flagRate, flagLoop); err != nil {
		log.Error("%v", err)
	}

	// Keep serving the preview until interrupted.
	if flagPreview != "" {
		<-ctx.Done()
	}

	if stats, ok := pipeline.Stats(key); ok {
		log.Info("%v: assembler %+v", key, stats.Assembler)
		log.Info("%v: decoder path=%v hardware=%v frames=%d/%d pictures=%d dropped=%d",
			key, stats.Decoder.Path, stats.Decoder.Hardware,
			stats.Decoder.HardwareFrames, stats.Decoder.SoftwareFrames,
			stats.Decoder.Pictures, stats.Decoder.Dropped)
	}

	// Stopping the decoders flushes their last pictures and then closes the
	// subscriber channels.
	pipeline.Close()
	if written != nil {
		<-written
	}
}

func watchReady(ctx context.Context, p *alohadecode.Pipeline, key alohadecode.StreamKey) {
	ready := p.SubscribeReady(key, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ready:
			if !ok {
				return
			}
			log.Info("%v: hardware decoder ready, handle %d, coded size %dx%d",
				r.Key, r.Handle, r.Width, r.Height)
		}
	}
}
