package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rsrcutils/rsrcbrowser/config"
	"github.com/rsrcutils/rsrcbrowser/pict"
	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/rle"
	"github.com/rsrcutils/rsrcbrowser/template"
	"github.com/rsrcutils/rsrcbrowser/utils"
	"github.com/rsrcutils/rsrcbrowser/web"
)

func loadTemplates(f *resource.File, dir string) error {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return err
	}

	tmplType := resource.TypeFromString("TMPL")
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tmpl") {
			continue
		}
		data, err := ioutil.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		f.AddUnique(&resource.Resource{
			Type: tmplType,
			Name: strings.TrimSuffix(e.Name(), ".tmpl"),
			Data: data,
		})
	}
	return nil
}

func formatForPath(path string) (resource.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rsrc":
		return resource.Classic, nil
	case ".rsrx":
		return resource.Extended, nil
	case ".rez":
		return resource.Rez, nil
	}
	return resource.Classic, fmt.Errorf("cannot tell format from extension of %q", path)
}

// templateFor finds the TMPL resource named after t and parses it.
func templateFor(f *resource.File, t resource.TypeCode) *template.Template {
	for _, r := range f.ResourcesOfType(resource.TypeFromString("TMPL")) {
		if r.Name == t.String() {
			tmpl, err := template.Parse(r.Data)
			if err != nil {
				log.Printf("Template for %v: %v", t, err)
				return nil
			}
			return tmpl
		}
	}
	return nil
}

func dumpListing(f *resource.File, verbose bool) {
	fmt.Printf("format: %v\n", f.Format)
	for _, t := range f.TypesSorted() {
		resources := f.ResourcesOfType(t)
		tmpl := templateFor(f, t)
		fmt.Printf("%v (%d)\n", t, len(resources))
		for _, r := range resources {
			fmt.Printf("  %6d  %5d bytes  [%v]  %s\n", r.ID, len(r.Data), r.Attributes, r.Name)
			if !verbose {
				continue
			}
			if tmpl != nil {
				if rec, err := tmpl.Decode(r.Data); rec != nil {
					if err != nil {
						log.Printf("Decode %v %d: %v", t, r.ID, err)
					}
					utils.Dump(rec.Snapshot())
					continue
				}
			}
			fmt.Printf("          %s\n", utils.DumpToOneLineString(r.Data))
		}
	}
	fmt.Printf("total: %d resources\n", f.Count())
}

func writePng(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

// exportImages writes png renditions next to the raw payload for the
// resource types we can decode to pixels.
func exportImages(dir, base string, r *resource.Resource) {
	switch r.Type.String() {
	case "PICT":
		img, err := pict.Decode(r.Data)
		if err != nil {
			log.Printf("Decode %s: %v", base, err)
			return
		}
		if err := writePng(filepath.Join(dir, base+".png"), img); err != nil {
			log.Printf("Export %s.png: %v", base, err)
		}
	case "rlëD":
		sprite, err := rle.Decode(r.Data)
		if err != nil {
			log.Printf("Decode %s: %v", base, err)
			return
		}
		for i, frame := range sprite.Frames {
			name := fmt.Sprintf("%s_frame%d.png", base, i)
			if err := writePng(filepath.Join(dir, name), frame); err != nil {
				log.Printf("Export %s: %v", name, err)
			}
		}
	}
}

func main() {
	var addr, settingsPath, convertPath, exportDir string
	var dump, verbose bool
	flag.StringVar(&addr, "i", "", "Listen address, overrides settings")
	flag.StringVar(&settingsPath, "settings", "rsrcbrowser.yaml", "Path to settings file")
	flag.StringVar(&convertPath, "convert", "", "Write the file in the format implied by this path's extension and exit")
	flag.StringVar(&exportDir, "export", "", "Write every resource payload into this directory and exit")
	flag.BoolVar(&dump, "dump", false, "Print a listing of the file and exit")
	flag.BoolVar(&verbose, "v", false, "Include hex payload previews in the listing")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("Usage: %s [flags] file", filepath.Base(flag.CommandLine.Name()))
	}
	inPath := flag.Arg(0)

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		log.Fatalf("Settings: %v", err)
	}
	if addr == "" {
		addr = settings.ListenAddr
	}

	data, err := ioutil.ReadFile(inPath)
	if err != nil {
		log.Fatalf("Cannot read %q: %v", inPath, err)
	}
	f, err := resource.ReadFile(data)
	if err != nil {
		log.Fatalf("Cannot parse %q: %v", inPath, err)
	}

	if settings.TemplateDir != "" {
		if err := loadTemplates(f, settings.TemplateDir); err != nil {
			log.Printf("Templates from %q: %v", settings.TemplateDir, err)
		}
	}

	if dump {
		dumpListing(f, verbose)
	} else if exportDir != "" {
		for _, t := range f.Types() {
			for _, r := range f.ResourcesOfType(t) {
				base := fmt.Sprintf("%s_%d", t, r.ID)
				if err := ioutil.WriteFile(filepath.Join(exportDir, base+".bin"), r.Data, 0644); err != nil {
					log.Fatalf("Export %q: %v", base, err)
				}
				exportImages(exportDir, base, r)
			}
		}
		log.Printf("Exported %d resources to %q", f.Count(), exportDir)
	} else if convertPath != "" {
		format, err := formatForPath(convertPath)
		if err != nil {
			log.Fatal(err)
		}
		f.Format = format
		out, err := f.Write()
		if err != nil {
			log.Fatalf("Encode as %v: %v", format, err)
		}
		if err := ioutil.WriteFile(convertPath, out, 0644); err != nil {
			log.Fatalf("Write %q: %v", convertPath, err)
		}
		log.Printf("Wrote %q (%v, %d bytes)", convertPath, format, len(out))
	} else {
		if err := web.StartServer(addr, f, inPath); err != nil {
			log.Fatal(err)
		}
	}
}
