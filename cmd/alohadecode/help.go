package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagConfig      string
	flagInput       string
	flagParticipant string
	flagKind        string
	flagRate        float64
	flagOutput      string
	flagPreview     string
	flagWidth       int
	flagHeight      int
	flagFFmpeg      string
	flagNoHardware  bool
	flagLogLevel    string
	flagLoop        bool
	flagHelp        bool
	flagVersion     bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	flag.StringVarP(&flagInput, "input", "i", "", "H.264 Annex-B file to replay")
	flag.StringVarP(&flagParticipant, "participant", "p", "local", "Participant name")
	flag.StringVarP(&flagKind, "kind", "k", "camera", "Stream kind")
	flag.Float64VarP(&flagRate, "rate", "r", 30, "Replay rate, in frames per second")
	flag.StringVarP(&flagOutput, "output", "o", "", "Write raw RGB24 pictures to file")
	flag.StringVarP(&flagPreview, "preview", "", "", "Serve a browser preview on address")
	flag.IntVarP(&flagWidth, "width", "x", 0, "Working width")
	flag.IntVarP(&flagHeight, "height", "y", 0, "Working height")
	flag.StringVarP(&flagFFmpeg, "ffmpeg", "", "", "Path to ffmpeg")
	flag.BoolVarP(&flagNoHardware, "no-hardware", "", false, "Disable hardware decoding")
	flag.StringVarP(&flagLogLevel, "loglevel", "l", "", "Log level directives")
	flag.BoolVarP(&flagLoop, "loop", "", false, "Replay input forever")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Real-time H.264 decoding for video conferencing clients

Usage: alohadecode [OPTION]... --input=FILE

Replays an H.264 elementary stream through RTP packetization, reassembly
and decoding, as if it had been received from a remote participant.

Input:
  -i, --input=FILE       H.264 Annex-B file to replay (required)
  -r, --rate=NUM         Replay rate in frames per second; 0 replays as
                         fast as possible (default: 30)
      --loop             Start over at end of file
  -p, --participant=NAME Participant name (default: local)
  -k, --kind=KIND        camera or screenshare (default: camera)

Decoding:
  -c, --config=FILE      YAML configuration file
  -x, --width=NUM        Working width (default: 1920)
  -y, --height=NUM       Working height (default: 1080)
      --ffmpeg=FILE      Path to ffmpeg (default: ffmpeg)
      --no-hardware      Never use hardware decoding

Output:
  -o, --output=FILE      Write raw RGB24 pictures to FILE
      --preview=ADDR     Serve a live preview at http://ADDR/

Miscellaneous:
  -l, --loglevel=LEVELS  Log levels, e.g. "info,decoder=debug"
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	// Line 1
	r.Printf("        ")
	y.Printf(" _ ")
	b.Printf("       ")
	y.Printf(" _     ")
	r.Printf("        ")
	b.Println("     _")

	// Line 2
	r.Printf("   __ _ ")
	y.Printf("| |")
	b.Printf("  ___  ")
	y.Printf("| |__  ")
	r.Printf("  __ _ ")
	b.Println("    __| | ___  ___  ___   __| | ___")

	// Line 3
	r.Printf("  / _` |")
	y.Printf("| |")
	b.Printf(" / _ \\ ")
	y.Printf("| '_ \\ ")
	r.Printf(" / _` |")
	b.Println("   / _` |/ _ \\/ __|/ _ \\ / _` |/ _ \\")

	// Line 4
	r.Printf(" | (_| |")
	y.Printf("| |")
	b.Printf("| (_) |")
	y.Printf("| | | |")
	r.Printf("| (_| |")
	b.Println("  | (_| |  __/ (__| (_) | (_| |  __/")

	// Line 5
	r.Printf("  \\__,_|")
	y.Printf("|_|")
	b.Printf(" \\___/ ")
	y.Printf("|_| |_|")
	r.Printf(" \\__,_|")
	b.Println("   \\__,_|\\___|\\___|\\___/ \\__,_|\\___|")

	fmt.Println(helpString)
}

// Populated via -ldflags="-X ...".
var GitRevisionId string

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("alohadecode", GitRevisionId)
}
