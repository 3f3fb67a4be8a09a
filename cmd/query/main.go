// Command query answers dataset and chat questions against a local data
// directory without running the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/samirrijal/srimap/internal/adapters/filesystem"
	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/usecases"
	"github.com/samirrijal/srimap/internal/pkg/geospatial"
	"github.com/samirrijal/srimap/internal/pkg/logging"
)

type Options struct {
	DataDir  string `short:"d" long:"data-dir"  env:"SRIMAP_DATA_DIR"  description:"Directory holding the GeoJSON datasets" default:"data"`
	Centroid string `long:"centroid"            env:"SRIMAP_CENTROID"  description:"Representative point for lines and polygons (first|planar)" default:"first"`
	JSON     bool   `short:"j" long:"json"      description:"Print results as JSON"`
	LogLevel string `long:"log-level"           env:"LOG_LEVEL"        description:"Log level" default:"warn"`

	Nearby   NearbyCommand   `command:"nearby"   description:"List features within a radius of a point"`
	Classify ClassifyCommand `command:"classify" description:"Show how a question would be routed"`
	Ask      AskCommand      `command:"ask"      description:"Answer a question from the local datasets"`
	Stats    StatsCommand    `command:"stats"    description:"Print statistics for a dataset"`
	Search   SearchCommand   `command:"search"   description:"Search features by location keyword"`
}

var opts Options

type app struct {
	store    *usecases.FeatureStore
	nearby   *usecases.NearbyService
	datasets *usecases.DatasetService
}

func newApp() (*app, error) {
	logging.Setup(opts.LogLevel, "text")

	mode, err := geospatial.ParseCentroidMode(opts.Centroid)
	if err != nil {
		return nil, err
	}
	store := usecases.NewFeatureStore(filesystem.New(opts.DataDir), domain.DefaultFiles())
	return &app{
		store:    store,
		nearby:   usecases.NewNearbyService(store, nil, mode, 0),
		datasets: usecases.NewDatasetService(store, nil, "query"),
	}, nil
}

type NearbyCommand struct {
	Lat    float64 `long:"lat"    required:"true" description:"Latitude"`
	Lon    float64 `long:"lon"    required:"true" description:"Longitude"`
	Radius float64 `short:"r" long:"radius" description:"Radius in kilometres (0 uses the dataset default)"`
	Args   struct {
		Dataset string `positional-arg-name:"dataset" required:"true"`
	} `positional-args:"yes"`
}

func (c *NearbyCommand) Execute([]string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	id, err := domain.ParseDatasetID(c.Args.Dataset)
	if err != nil {
		return err
	}
	radius := c.Radius
	if radius <= 0 {
		radius = domain.CategoryFor(id).DefaultRadiusKm()
	}

	results, err := a.nearby.FindNearby(context.Background(), c.Lat, c.Lon, radius, id)
	if err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Printf("No %s found within %.1f km\n", id, radius)
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. %-40s %6.2f km  %s\n", i+1, r.Name, r.DistanceKm, r.Location)
	}
	return nil
}

type ClassifyCommand struct {
	Args struct {
		Question []string `positional-arg-name:"question" required:"1"`
	} `positional-args:"yes"`
}

func (c *ClassifyCommand) Execute([]string) error {
	cl := usecases.Analyze(strings.Join(c.Args.Question, " "))
	if opts.JSON {
		return printJSON(cl)
	}
	if !cl.Matched {
		fmt.Println("no category matched, question would go to the remote assistant")
		return nil
	}
	fmt.Printf("category: %s\nnearby:   %t\n", cl.Category, cl.Nearby)
	if cl.Place != "" {
		fmt.Printf("place:    %s\n", cl.Place)
	}
	return nil
}

type AskCommand struct {
	Lat  float64 `long:"lat" description:"Latitude of the asker"`
	Lon  float64 `long:"lon" description:"Longitude of the asker"`
	Args struct {
		Question []string `positional-arg-name:"question" required:"1"`
	} `positional-args:"yes"`
}

func (c *AskCommand) Execute([]string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	var loc *domain.UserLocation
	if c.Lat != 0 || c.Lon != 0 {
		loc = &domain.UserLocation{Lat: c.Lat, Lon: c.Lon}
		if !loc.Point().Valid() {
			return fmt.Errorf("location %.4f,%.4f is out of range", c.Lat, c.Lon)
		}
	}

	chat := usecases.NewChatService(usecases.NewAnswerer(a.store, a.nearby), usecases.DefaultChatConfig())
	session := chat.Open(loc)
	defer chat.Close(session.ID())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reply, err := session.Ask(ctx, strings.Join(c.Args.Question, " "))
	if err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(reply)
	}
	fmt.Println(reply.Text)
	return nil
}

type StatsCommand struct {
	Summary bool `short:"s" long:"summary" description:"Print the dataset summary instead of full statistics"`
	Args    struct {
		Dataset string `positional-arg-name:"dataset" required:"true"`
	} `positional-args:"yes"`
}

func (c *StatsCommand) Execute([]string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	id, err := domain.ParseDatasetID(c.Args.Dataset)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if c.Summary {
		sum, err := a.datasets.Summary(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(sum)
	}
	stats, err := a.datasets.Stats(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

type SearchCommand struct {
	Dataset string `long:"dataset" description:"Restrict the search to one dataset"`
	Args    struct {
		Keyword string `positional-arg-name:"keyword" required:"true"`
	} `positional-args:"yes"`
}

func (c *SearchCommand) Execute([]string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if c.Dataset == "" {
		res, err := a.datasets.SearchAll(ctx, c.Args.Keyword)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
	id, err := domain.ParseDatasetID(c.Dataset)
	if err != nil {
		return err
	}
	m, err := a.datasets.SearchByLocation(ctx, id, c.Args.Keyword)
	if err != nil {
		return err
	}
	return printJSON(m)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
