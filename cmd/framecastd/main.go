package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/framecast/framecast/pkg/bus"
	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/encoder/h264"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/monitoring"
	fos "github.com/framecast/framecast/pkg/os"
	"github.com/framecast/framecast/pkg/pipeline"
	"github.com/framecast/framecast/pkg/shm"
)

var Version = ""

func main() { os.Exit(run()) }

func run() int {
	// Only --conf matters before the config is loaded, the rest of
	// the flags override the loaded values afterwards.
	pre := flag.NewFlagSet("framecastd", flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	confPath := pre.StringP("conf", "c", "", "")
	_ = pre.Parse(os.Args[1:])

	conf, err := config.NewConfig(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	flags := flag.NewFlagSet("framecastd", flag.ContinueOnError)
	flags.StringP("conf", "c", "", "custom configuration file path")
	conf.WithFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"%s attaches to an I420 frame residing in a shared memory area, encodes it "+
				"into a corresponding h264 frame, and publishes it to a running session.\n",
			os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s --cid=<session> --name=<shared memory area> --width=<width> --height=<height> [--gop=<pictures>] [--verbose]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, flags.FlagUsages())
		fmt.Fprintf(os.Stderr, "Example: %s --cid=111 --name=video0.i420 --width=640 --height=480 --verbose\n", os.Args[0])
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		return 1
	}
	if err := conf.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flags.Usage()
		return 1
	}

	log := logger.NewConsole(conf.Verbose, "cast")
	log.Info().Str("version", Version).Msgf("framecastd")

	geo := shm.Geometry{Width: conf.Video.Width, Height: conf.Video.Height}
	area, err := shm.Attach(conf.Region.Name, geo)
	if err != nil {
		log.Error().Err(err).Msgf("failed to attach to shared memory %q", conf.Region.Name)
		return 1
	}
	defer func() { _ = area.Detach() }()
	log.Info().Msgf("attached to %q (%d bytes)", area.Name(), area.Size())

	codec, err := h264.NewSession(geo.Width, geo.Height,
		h264.DefaultOptions(conf.Video.Gop, conf.Verbose))
	if err != nil {
		log.Error().Err(err).Msg("failed to create the encoder")
		return 1
	}
	log.Info().Msg(codec.Info())

	session, err := bus.NewSession(conf.Session.Cid, conf.Session.Bus, log)
	if err != nil {
		_ = codec.Shutdown()
		log.Error().Err(err).Uint32("cid", conf.Session.Cid).Msg("failed to join the session")
		return 1
	}
	defer session.Stop()

	mon := monitoring.New(conf.Monitoring, log)
	mon.Run()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mon.Shutdown(ctx)
	}()

	// A signal marks the session not running; the loop notices at the
	// next guard check, after the pending frame.
	go func() {
		<-fos.ExpectTermination()
		log.Info().Msg("shutting down")
		session.Stop()
	}()

	pipeline.New(area, codec, session, geo, log).Run()
	return 0
}
