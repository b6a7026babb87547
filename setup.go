package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccollins476ad/studipdl/studip"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host     string // Base url of the Stud.IP installation.
	Username string // Prompted for if empty.
	Password string // Prompted for if empty.
	CourseID string // Course id or url; prompted for if empty.
	DestDir  string // Base directory; defaults to the course title.
	Force    bool   // Overwrite existing files without asking.
	Keep     bool   // Keep existing files without asking.
	Verbose  bool   // True for verbose output.
}

// loadEnv reads a .env file from the working directory, if there is one, into
// the process environment.
func loadEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("no .env file, using process environment")
		return nil
	}
	return err
}

func envDefault(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseArgs(args []string) (*Config, error) {
	err := loadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	flags := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	flags.Usage = func() { usage(flags) }

	host := flags.String("host", envDefault("STUDIP_HOST", studip.DefaultBaseURL), "base url of the Stud.IP installation")
	username := flags.String("u", os.Getenv("STUDIP_USERNAME"), "username")
	course := flags.String("course", "", "course id or course url")
	dir := flags.String("dir", "", "destination directory (default: course title)")
	force := flags.Bool("force", false, "overwrite existing files without asking")
	keep := flags.Bool("keep", false, "keep existing files without asking")
	verbose := flags.Bool("v", false, "verbose output")

	err = flags.Parse(args)
	if err != nil {
		return nil, err
	}

	if len(flags.Args()) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flags.Args()[0])
	}
	if *force && *keep {
		return nil, fmt.Errorf("-force and -keep are mutually exclusive")
	}
	if !strings.HasPrefix(*host, "http://") && !strings.HasPrefix(*host, "https://") {
		*host = "https://" + *host
	}

	return &Config{
		Host:     *host,
		Username: *username,
		Password: os.Getenv("STUDIP_PASSWORD"),
		CourseID: *course,
		DestDir:  *dir,
		Force:    *force,
		Keep:     *keep,
		Verbose:  *verbose,
	}, nil
}

func usage(flags *flag.FlagSet) {
	fmt.Fprintf(flags.Output(), "Usage: %s [option]...\n", flags.Name())
	fmt.Fprintf(flags.Output(), "Downloads all files of a Stud.IP course.\n")
	fmt.Fprintf(flags.Output(), "Credentials may also be given via STUDIP_USERNAME and STUDIP_PASSWORD (or a .env file).\n")
	flags.PrintDefaults()
}
