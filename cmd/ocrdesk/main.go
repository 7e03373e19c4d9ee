// ocrdesk is the command-line front end of the document digitization core.
// It manages project folders, imports scans and PDFs, runs layout analysis
// and OCR, and exports the recognized text.
//
// Usage:
//
//	ocrdesk <command> [flags]
//
// Commands:
//
//	create       Create a new project
//	list         List stored projects
//	add-images   Add scan images to a project
//	import-pdf   Rasterize a PDF's pages into a project
//	analyze      Run layout analysis over every page
//	recognize    Run OCR over every page's boxes
//	export       Export the project (text, html, simple_html, epub, odt, pdf, preview)
//	delete       Delete a stored project
//
// Every command takes -store, the directory holding the project folders.
// Project-level settings can be overridden with a JSON settings file via
// -settings.
//
// The OCR backend is chosen by the "ocr_engine" setting: "tesseract" (the
// default, runs locally) or "docai", which needs a YAML configuration via
// -docai-config:
//
//	project_id: "your-gcp-project-id"
//	location: "us"
//	processor_id: "your-processor-id"
//
// Document AI authentication uses the GOOGLE_APPLICATION_CREDENTIALS
// environment variable.
//
// Example:
//
//	ocrdesk create -store ~/scans -name "My Book"
//	ocrdesk import-pdf -store ~/scans -project <uuid> -pdf book.pdf
//	ocrdesk analyze -store ~/scans -project <uuid>
//	ocrdesk recognize -store ~/scans -project <uuid>
//	ocrdesk export -store ~/scans -project <uuid> -format pdf
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ocrdesk/ocrdesk/pkg/analyzer"
	"github.com/ocrdesk/ocrdesk/pkg/logger"
	"github.com/ocrdesk/ocrdesk/pkg/ocrengine"
	"github.com/ocrdesk/ocrdesk/pkg/project"
	"github.com/ocrdesk/ocrdesk/pkg/settings"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "create":
		err = cmdCreate(args)
	case "list":
		err = cmdList(args)
	case "add-images":
		err = cmdAddImages(args)
	case "import-pdf":
		err = cmdImportPDF(args)
	case "analyze":
		err = cmdAnalyze(args)
	case "recognize":
		err = cmdRecognize(args)
	case "export":
		err = cmdExport(args)
	case "delete":
		err = cmdDelete(args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ocrdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands: create, list, add-images, import-pdf, analyze, recognize, export, delete")
}

// common holds the flags shared by every command.
type common struct {
	store    string
	settings string
	logLevel string
}

func commonFlags(fs *flag.FlagSet) *common {
	c := &common{}
	fs.StringVar(&c.store, "store", "", "Directory holding the project folders (required)")
	fs.StringVar(&c.settings, "settings", "", "Path to a JSON settings file overriding the defaults")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	return c
}

func (c *common) open(fs *flag.FlagSet, args []string) (*project.Store, *settings.Settings, logger.Logger, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	if c.store == "" {
		fs.PrintDefaults()
		return nil, nil, nil, fmt.Errorf("-store flag is required")
	}
	log := logger.New(c.logLevel)
	app := settings.Defaults()
	if c.settings != "" {
		override, err := settings.Load(c.settings)
		if err != nil {
			return nil, nil, nil, err
		}
		override.SetFallback(app)
		app = override
	}
	return project.NewStore(c.store, log), app, log, nil
}

func loadProject(store *project.Store, id string) (*project.Project, error) {
	if id == "" {
		return nil, fmt.Errorf("-project flag is required")
	}
	return store.Load(id)
}

func cmdCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	c := commonFlags(fs)
	name := fs.String("name", "", "Project name (required)")
	description := fs.String("description", "", "Project description")
	store, app, log, err := c.open(fs, args)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name flag is required")
	}

	p := project.New(*name, "", app, log)
	p.Description = *description
	p.Folder = store.Dir(p.UUID)
	if err := store.Save(p); err != nil {
		return err
	}
	fmt.Println(p.UUID)
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	c := commonFlags(fs)
	store, _, _, err := c.open(fs, args)
	if err != nil {
		return err
	}
	list, err := store.List()
	if err != nil {
		return err
	}
	for _, meta := range list {
		fmt.Printf("%s\t%s\n", meta.UUID, meta.Name)
	}
	return nil
}

func cmdAddImages(args []string) error {
	fs := flag.NewFlagSet("add-images", flag.ExitOnError)
	c := commonFlags(fs)
	id := fs.String("project", "", "Project uuid (required)")
	store, _, _, err := c.open(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no image files given")
	}
	p, err := loadProject(store, *id)
	if err != nil {
		return err
	}
	if err := p.AddImages(fs.Args()); err != nil {
		return err
	}
	fmt.Printf("Added %d images, %d pages total\n", fs.NArg(), len(p.Pages))
	return store.Save(p)
}

func cmdImportPDF(args []string) error {
	fs := flag.NewFlagSet("import-pdf", flag.ExitOnError)
	c := commonFlags(fs)
	id := fs.String("project", "", "Project uuid (required)")
	pdfPath := fs.String("pdf", "", "Path to the input PDF file (required)")
	from := fs.Int("from", 0, "First page to import (zero-based)")
	to := fs.Int("to", -1, "Last page to import (inclusive, -1 = last)")
	store, _, _, err := c.open(fs, args)
	if err != nil {
		return err
	}
	if *pdfPath == "" {
		return fmt.Errorf("-pdf flag is required")
	}
	p, err := loadProject(store, *id)
	if err != nil {
		return err
	}

	err = p.ImportPDF(context.Background(), *pdfPath, *from, *to, func(done, total int, message string) {
		fmt.Printf("[%d/%d] %s\n", done, total, message)
	})
	if err != nil {
		return err
	}
	return store.Save(p)
}

func cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	c := commonFlags(fs)
	id := fs.String("project", "", "Project uuid (required)")
	store, _, log, err := c.open(fs, args)
	if err != nil {
		return err
	}
	p, err := loadProject(store, *id)
	if err != nil {
		return err
	}

	a := analyzer.NewTesseract(analyzer.ConfigFromSettings(p.Settings), log)
	defer a.Close()
	if err := p.AnalyzePages(context.Background(), a); err != nil {
		return err
	}
	fmt.Printf("Analyzed %d pages\n", len(p.Pages))
	return store.Save(p)
}

func cmdRecognize(args []string) error {
	fs := flag.NewFlagSet("recognize", flag.ExitOnError)
	c := commonFlags(fs)
	id := fs.String("project", "", "Project uuid (required)")
	docaiConfig := fs.String("docai-config", "", "Path to the Document AI YAML config (for ocr_engine=docai)")
	store, _, log, err := c.open(fs, args)
	if err != nil {
		return err
	}
	p, err := loadProject(store, *id)
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := buildEngine(ctx, p.Settings, *docaiConfig, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	err = p.RecognizePageBoxes(ctx, engine, func(done, total int, message string) {
		fmt.Printf("[%d/%d] %s\n", done, total, message)
	})
	if err != nil {
		return err
	}
	return store.Save(p)
}

// buildEngine picks the OCR backend from the "ocr_engine" setting.
func buildEngine(ctx context.Context, s *settings.Settings, docaiConfig string, log logger.Logger) (ocrengine.Engine, error) {
	switch name := s.String("ocr_engine", "tesseract"); name {
	case "tesseract":
		return ocrengine.NewTesseract(ocrengine.ConfigFromSettings(s), log)
	case "docai":
		if docaiConfig == "" {
			return nil, fmt.Errorf("-docai-config flag is required for ocr_engine=docai")
		}
		data, err := os.ReadFile(docaiConfig)
		if err != nil {
			return nil, err
		}
		var cfg ocrengine.DocAIConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", docaiConfig, err)
		}
		langs := s.StringSlice("langs", []string{"eng"})
		return ocrengine.NewDocAI(ctx, cfg, langs, log)
	default:
		return nil, fmt.Errorf("unknown ocr_engine %q", name)
	}
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	c := commonFlags(fs)
	id := fs.String("project", "", "Project uuid (required)")
	format := fs.String("format", "text", "Export format: text, html, simple_html, epub, odt, pdf, preview")
	outDir := fs.String("out", "", "Output directory (default: the export_path setting)")
	store, app, _, err := c.open(fs, args)
	if err != nil {
		return err
	}
	p, err := loadProject(store, *id)
	if err != nil {
		return err
	}
	if *outDir != "" {
		p.Settings.Set("export_path", *outDir)
		p.Settings.Set("export_preview_path", *outDir)
	}

	path, err := p.Export(*format, app)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	c := commonFlags(fs)
	id := fs.String("project", "", "Project uuid (required)")
	store, _, _, err := c.open(fs, args)
	if err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-project flag is required")
	}
	return store.Delete(*id)
}
