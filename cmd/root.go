// Package cmd implements the squarestitch command-line interface.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/squarestitch/internal/combiner"
	"github.com/kiesman99/squarestitch/pkg/geo"
)

const version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "squarestitch",
	Short: "Stitch squaremap tile images into one large map",
	Long: `squarestitch combines the tile images rendered by the squaremap
Minecraft server plugin into a single large map image, with optional area
selection, cropping, and a coordinate grid overlay.

Tiles are read from {tiles-dir}/{world}/{zoom}/{col}_{row}.png.

Examples:
  # Combine every overworld tile at the highest detail level
  squarestitch --tiles ./web/tiles --world minecraft_overworld --zoom 3 -o map.png

  # Export a 1000x1000 block area around spawn and trim blank space
  squarestitch --tiles ./web/tiles --world minecraft_overworld --zoom 3 --area -500,-500,500,500 --crop auto

  # Draw a grid with coordinate labels every 512 blocks
  squarestitch --tiles ./web/tiles --world minecraft_overworld --zoom 2 --grid 512

  # Start the HTTP API
  squarestitch serve --tiles ./web/tiles --port 8080`,
	RunE: runCombine,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.squarestitch.yaml)")
	rootCmd.PersistentFlags().StringP("tiles", "t", "", "tiles directory (required)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	// Combine options
	rootCmd.Flags().StringP("world", "w", "minecraft_overworld", "world to combine, as a subdirectory of the tiles directory or an absolute path")
	rootCmd.Flags().IntP("zoom", "z", 3, "zoom level, 0 (coarsest) through 3 (finest)")
	rootCmd.Flags().String("area", "", "area to export as 'x1,y1,x2,y2' in world block coordinates")
	rootCmd.Flags().String("crop", "", "final crop: 'auto' to trim blank space, or WIDTHxHEIGHT centered on the image")
	rootCmd.Flags().Int("grid", 0, "grid overlay interval in blocks (0 disables the overlay)")
	rootCmd.Flags().String("style", "", "style as a JSON file path or inline JSON document")
	rootCmd.Flags().String("background", "", "background color, overriding the style (name or hex)")
	rootCmd.Flags().String("tile-ext", "png", "tile image file extension ('*' for any)")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file (default: {world}-{zoom}.png)")
	rootCmd.Flags().Bool("overwrite", false, "overwrite the output file instead of adding a numbered suffix")
	rootCmd.Flags().BoolP("yes", "y", false, "answer yes to all confirmation prompts")

	// Bind flags to viper
	viper.BindPFlag("tiles", rootCmd.PersistentFlags().Lookup("tiles"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("world", rootCmd.Flags().Lookup("world"))
	viper.BindPFlag("zoom", rootCmd.Flags().Lookup("zoom"))
	viper.BindPFlag("area", rootCmd.Flags().Lookup("area"))
	viper.BindPFlag("crop", rootCmd.Flags().Lookup("crop"))
	viper.BindPFlag("grid", rootCmd.Flags().Lookup("grid"))
	viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	viper.BindPFlag("background", rootCmd.Flags().Lookup("background"))
	viper.BindPFlag("tile-ext", rootCmd.Flags().Lookup("tile-ext"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("overwrite", rootCmd.Flags().Lookup("overwrite"))
	viper.BindPFlag("yes", rootCmd.Flags().Lookup("yes"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".squarestitch" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".squarestitch")
	}

	viper.SetEnvPrefix("SQUARESTITCH")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger, honoring --verbose.
func newLogger() *log.Logger {
	level := log.InfoLevel
	if viper.GetBool("verbose") {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
}

func runCombine(cmd *cobra.Command, args []string) error {
	tilesDir := viper.GetString("tiles")
	if tilesDir == "" {
		return fmt.Errorf("tiles directory is required (use --tiles)")
	}
	world := viper.GetString("world")
	zoom := viper.GetInt("zoom")
	logger := newLogger()

	style := combiner.DefaultStyle()
	if s := viper.GetString("style"); s != "" {
		var err error
		style, err = combiner.LoadStyle(s)
		if err != nil {
			return err
		}
	}
	if bg := viper.GetString("background"); bg != "" {
		c, err := combiner.ParseColor(bg)
		if err != nil {
			return err
		}
		style.Background = c
	}

	cfg := combiner.Config{
		GridStep: viper.GetInt("grid"),
		Style:    style,
		Logger:   logger,
		Progress: func(message string) {
			logger.Info(message)
		},
	}
	if !viper.GetBool("yes") {
		cfg.Confirm = promptConfirm(cmd)
	}

	c, err := combiner.New(tilesDir, cfg)
	if err != nil {
		return err
	}

	req := combiner.Request{
		World:   world,
		Zoom:    zoom,
		TileExt: viper.GetString("tile-ext"),
	}
	if areaStr := viper.GetString("area"); areaStr != "" {
		area, err := parseArea(areaStr)
		if err != nil {
			return err
		}
		req.Area = &area
	}
	if cropStr := viper.GetString("crop"); cropStr != "" {
		crop, err := combiner.ParseCrop(cropStr)
		if err != nil {
			return err
		}
		req.Crop = &crop
	}

	m, err := c.Combine(cmd.Context(), req)
	if err != nil {
		return err
	}

	output := viper.GetString("output")
	if output == "" {
		output = fmt.Sprintf("%s-%d.png", filepath.Base(world), zoom)
	}
	if !viper.GetBool("overwrite") {
		output = nextFreePath(output)
	}
	if err := imaging.Save(m.Image, output); err != nil {
		return fmt.Errorf("saving image: %w", err)
	}

	size := m.Size()
	logger.Info("image saved", "path", output, "width", size.X, "height", size.Y)
	return nil
}

// parseArea parses 'x1,y1,x2,y2' into a block-coordinate rectangle.
func parseArea(s string) (geo.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Rect{}, fmt.Errorf("area must be in format 'x1,y1,x2,y2'")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return geo.Rect{}, fmt.Errorf("invalid area coordinate %q: %v", p, err)
		}
		vals[i] = v
	}
	return geo.Rect{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}, nil
}

// promptConfirm asks the user on stderr and reads a y/n answer from stdin.
func promptConfirm(cmd *cobra.Command) combiner.ConfirmFunc {
	reader := bufio.NewReader(cmd.InOrStdin())
	return func(message string) bool {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", message)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// nextFreePath returns path unchanged if nothing exists there, otherwise the
// first "name (n).ext" variant that is still free.
func nextFreePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
