// ProfileStencil — Branded circular profile pictures.
//
// Usage:
//
//	profilestencil render -i <photo> -o <file> [options]
//	profilestencil serve [--config profilestencil.yaml] [--addr :8080] [--open]
//	profilestencil palette
//	profilestencil init
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/clients/server"
	"github.com/xob0t/ProfileStencil/internal/config"
	"github.com/xob0t/ProfileStencil/internal/logging"
	"github.com/xob0t/ProfileStencil/internal/store"
	"github.com/xob0t/ProfileStencil/pkg/compositor"
	"github.com/xob0t/ProfileStencil/pkg/generator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:], os.Stdout)
	case "serve":
		err = runServe(os.Args[2:])
	case "palette":
		err = runPalette(os.Stdout)
	case "init":
		err = runInit(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		printUsage(os.Stderr)
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		fatal(err)
	}
}

func runRender(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)

	var (
		input, output       string
		configPath          string
		scale, offX, offY   float64
		text, color         string
		position            float64
		logoPath, badgePath string
		fontPath            string
		quality             int
	)
	fs.StringVar(&input, "i", "", "Input photo (jpeg, png or webp)")
	fs.StringVar(&input, "input", "", "Input photo (jpeg, png or webp)")
	fs.StringVar(&output, "o", "", "Output file (.png or .jpg)")
	fs.StringVar(&output, "output", "", "Output file (.png or .jpg)")
	fs.StringVar(&configPath, "config", "", "Config file (for log and asset settings)")
	fs.Float64Var(&scale, "scale", 1, "Zoom factor")
	fs.Float64Var(&offX, "offset-x", 0, "Horizontal pan in [-1, 1]")
	fs.Float64Var(&offY, "offset-y", 0, "Vertical pan in [-1, 1]")
	fs.StringVar(&text, "text", compositor.NoneSentinel, "Curved message, or 'none'")
	fs.StringVar(&color, "color", "white", "Text colour: palette name or hex")
	fs.Float64Var(&position, "position", compositor.DefaultTextPosition, "Text position in degrees (90 = top)")
	fs.StringVar(&logoPath, "logo", "", "Logo image replacing the badge")
	fs.StringVar(&badgePath, "badge", "", "Default badge image (overrides config)")
	fs.StringVar(&fontPath, "font", "", "TTF/OTF font for the text (overrides config)")
	fs.IntVar(&quality, "quality", generator.DefaultJPEGQuality, "JPEG quality")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" || output == "" {
		return fmt.Errorf("both -i and -o are required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if badgePath != "" {
		cfg.Assets.Badge = badgePath
	}
	if fontPath != "" {
		cfg.Assets.Font = fontPath
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	opts := []compositor.Option{
		compositor.WithLogger(log.Named("compositor")),
		compositor.WithFontPath(cfg.Assets.Font),
	}
	if cfg.Assets.Badge != "" {
		opts = append(opts, compositor.WithAssetLoader(compositor.FileAssetLoader(cfg.Assets.Badge)))
	}
	comp, err := compositor.New(opts...)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if logoPath != "" {
		f, err := os.Open(logoPath)
		if err != nil {
			return fmt.Errorf("open logo: %w", err)
		}
		err = comp.SetLogo(ctx, f)
		f.Close()
		if err != nil {
			return err
		}
	}

	res, err := comp.ProcessFile(ctx, input, &compositor.Options{
		Transform: compositor.Transform{Scale: scale, OffsetX: offX, OffsetY: offY},
		Text: &compositor.TextStyling{
			Text:     compositor.ParseText(text),
			Color:    color,
			Position: position,
		},
	})
	if err != nil {
		return err
	}

	if err := generator.Generate(output, generator.Config{Image: res.Surface, Quality: quality}); err != nil {
		return err
	}
	log.Debug("rendered",
		zap.String("input", input), zap.String("output", output),
		zap.Float64("window_x", res.Window.X), zap.Float64("window_y", res.Window.Y), zap.Float64("window_size", res.Window.Size))
	fmt.Fprintf(out, "Done: %s\n", output)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var configPath, addr string
	var open bool
	fs.StringVar(&configPath, "config", "", "Config file (default ./"+config.FileName+" or $"+config.PathEnv+")")
	fs.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	fs.BoolVar(&open, "open", false, "Open the UI in a browser")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	if used := config.Used(configPath); used != "" {
		log.Info("loaded config", zap.String("path", used))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Storage, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(cfg, st, log.Named("server"))
	if open {
		go func() {
			if err := server.OpenBrowser(localURL(cfg.Server.Addr)); err != nil {
				log.Warn("open browser", zap.Error(err))
			}
		}()
	}
	return srv.Run(ctx)
}

func localURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func runPalette(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHEX")
	for _, c := range compositor.Palette {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Hex)
	}
	return tw.Flush()
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var path string
	fs.StringVar(&path, "config", config.FileName, "Output path for the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created: %s\n", path)
	fmt.Fprintln(out, "Run: profilestencil serve --config", path)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `ProfileStencil — Branded Circular Profile Pictures

USAGE:
    profilestencil render -i <photo> -o <file> [options]
    profilestencil serve [--config <path>] [--addr :8080] [--open]
    profilestencil palette
    profilestencil init [--config <path>]

RENDER:
    -i, --input <path>     Photo (jpeg, png or webp)
    -o, --output <path>    Output file (.png or .jpg)
    --scale <x>            Zoom factor (default: 1)
    --offset-x <v>         Horizontal pan in [-1, 1]
    --offset-y <v>         Vertical pan in [-1, 1]
    --text <s>             Curved message, or 'none' (default)
    --color <c>            Palette name or hex (default: white)
    --position <deg>       Text position, 90 = top (default: 90)
    --logo <path>          Logo replacing the badge
    --badge <path>         Default badge image
    --font <path>          Font for the message
    --quality <n>          JPEG quality (default: 92)

EXAMPLES:
    profilestencil init
    profilestencil serve --open
    profilestencil render -i me.jpg -o me.png --text "Every voice counts" --color gold
    profilestencil render -i me.jpg -o me.jpg --scale 1.4 --offset-y -0.2
`)
}
