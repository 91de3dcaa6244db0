package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrijs2005/cardkeeper/internal/client/aspects"
	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/pipeline"
	"github.com/dmitrijs2005/cardkeeper/internal/client/services"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/client/sources"
	"github.com/dmitrijs2005/cardkeeper/internal/flagx"
)

const maxOptionsShown = 8

var groupOrder = []string{"Basic Info", "Condition", "Details", "Advanced"}

// parseCommand parses leading flags declared by define, then splits the
// rest into positional arguments and key=value pairs.
func parseCommand(name, usage string, args []string, define func(fs *flag.FlagSet)) ([]string, map[string]string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, &usageError{usage}
	}
	return flagx.SplitKeyValues(fs.Args())
}

// progressPrinter shows pipeline progress on the console.
type progressPrinter struct{}

func (progressPrinter) Phase(_ pipeline.Phase, msg string) {
	if msg != "" {
		printlnFn(msg)
	}
}

func (progressPrinter) Uploaded(done, total int) {
	printlnFn(fmt.Sprintf("Uploading %d/%d images...", done, total))
}

func printNotice(n pipeline.Notice) {
	if n.Severity == pipeline.SeverityError {
		printlnFn("Error: " + n.Text)
		return
	}
	printlnFn(n.Text)
}

// Create builds inventory items from images, -p photos per item, applying
// key=value pairs to every item.
func (a *App) Create(ctx context.Context, args []string) error {
	const usage = "create [-p photos] <images|dir|archive.zip...> [key=value...]"

	photos := a.config.PhotosPerListing
	paths, data, err := parseCommand("create", usage, args, func(fs *flag.FlagSet) {
		fs.IntVar(&photos, "p", photos, "photos per listing")
	})
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return &usageError{usage}
	}

	rep, err := a.inventory.CreateBatch(ctx, a.session, services.BatchRequest{
		Paths:    paths,
		Photos:   photos,
		Data:     data,
		Observer: progressPrinter{},
	})
	if err != nil {
		return err
	}

	pipeline.Announce(ctx, rep, a.config.NoticeDelay, printNotice)
	return nil
}

// Job uploads a zip archive for server-side grouping.
func (a *App) Job(ctx context.Context, args []string) error {
	const usage = "job [-p photos] <archive.zip>"

	photos := a.config.PhotosPerListing
	paths, _, err := parseCommand("job", usage, args, func(fs *flag.FlagSet) {
		fs.IntVar(&photos, "p", photos, "photos per listing")
	})
	if err != nil {
		return err
	}
	if len(paths) != 1 {
		return &usageError{usage}
	}

	printlnFn("Uploading archive...")
	if err := a.inventory.SubmitArchiveJob(ctx, a.session, paths[0], photos); err != nil {
		return err
	}
	printlnFn("Archive submitted. Items will appear once the server has processed it.")
	return nil
}

// Show prints one inventory item.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return &usageError{"show <id>"}
	}
	rec, err := a.inventory.Show(ctx, a.session, args[0])
	if err != nil {
		return err
	}
	printRecord(rec)
	return nil
}

func printRecord(rec *models.InventoryRecord) {
	printlnFn("ID: " + rec.ID)
	printlnFn(fmt.Sprintf("Images (%d):", len(rec.Images)))
	for i, u := range rec.Images {
		printlnFn(fmt.Sprintf("  %d. %s", i+1, u))
	}

	data := models.CoerceData(rec.InventoryData)
	if len(data) == 0 {
		return
	}
	printlnFn("Data:")
	for _, k := range slices.Sorted(maps.Keys(data)) {
		printlnFn(fmt.Sprintf("  %s: %s", k, data[k]))
	}
}

// AddImages appends images to an existing item, one at a time.
func (a *App) AddImages(ctx context.Context, args []string) error {
	const usage = "addimages <id> <images|dir|archive.zip...>"
	if len(args) < 2 {
		return &usageError{usage}
	}
	if err := session.Require(a.session, a.now()); err != nil {
		return err
	}

	src, err := sources.Open(args[1:]...)
	if err != nil {
		return err
	}
	defer src.Close()

	results, err := a.inventory.AppendImages(ctx, a.session, args[0], src.Files(), func(done, total int) {
		printlnFn(fmt.Sprintf("Uploading %d/%d images...", done, total))
	})
	if err != nil {
		return err
	}

	ok := 0
	for _, r := range results {
		if r.Err != nil {
			printlnFn(fmt.Sprintf("Error: %s failed to upload", r.Filename))
			continue
		}
		ok++
	}
	printlnFn(fmt.Sprintf("Added %d of %d images", ok, len(results)))
	return nil
}

// Save merges key=value pairs into an item's data and stores it together
// with its images. With -c the data is validated against the category's
// aspects first.
func (a *App) Save(ctx context.Context, args []string) error {
	const usage = "save [-c category] <id> [key=value...]"

	var category string
	pos, data, err := parseCommand("save", usage, args, func(fs *flag.FlagSet) {
		fs.StringVar(&category, "c", "", "eBay category id")
	})
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return &usageError{usage}
	}

	rec, err := a.inventory.Show(ctx, a.session, pos[0])
	if err != nil {
		return err
	}

	merged := models.CoerceData(rec.InventoryData)
	for k, v := range data {
		merged[k] = v
	}

	err = a.inventory.Save(ctx, a.session, rec.ID, services.SaveRequest{
		Data:     merged,
		Images:   rec.Images,
		Category: category,
	})
	if err != nil {
		return err
	}
	printlnFn("Inventory item saved")
	return nil
}

// Delete deactivates an item.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return &usageError{"delete <id>"}
	}
	if err := a.inventory.Delete(ctx, a.session, args[0]); err != nil {
		return err
	}
	printlnFn("Inventory item deactivated")
	return nil
}

// Aspects lists a category's aspects grouped the way the editor shows
// them. Required aspects are marked with "*".
func (a *App) Aspects(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return &usageError{"aspects <category>"}
	}
	doc, err := a.aspects.Get(ctx, args[0])
	if err != nil {
		return err
	}

	grouped := aspects.GroupFields(aspects.Fields(doc.Aspects))
	for _, g := range orderedGroups(grouped) {
		printlnFn(g + ":")
		for _, f := range grouped[g] {
			printlnFn("  " + describeField(f))
		}
	}
	return nil
}

func orderedGroups(grouped map[string][]aspects.Field) []string {
	out := make([]string, 0, len(grouped))
	for _, g := range groupOrder {
		if _, ok := grouped[g]; ok {
			out = append(out, g)
		}
	}
	var rest []string
	for g := range grouped {
		if !slices.Contains(groupOrder, g) {
			rest = append(rest, g)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func describeField(f aspects.Field) string {
	var b strings.Builder
	b.WriteString(f.Name)
	if f.Required {
		b.WriteString(" *")
	}
	fmt.Fprintf(&b, " (%s)", f.Kind)

	if n := len(f.Options); n > 0 {
		shown := f.Options[:min(n, maxOptionsShown)]
		b.WriteString(": " + strings.Join(shown, ", "))
		if n > maxOptionsShown {
			fmt.Fprintf(&b, ", +%d more", n-maxOptionsShown)
		}
	}
	return b.String()
}
