// Demo scanner for the Caltech datasets.
// It downloads the selected dataset if requested, builds the index and walks
// one epoch over all images, reporting per-category counts and decode errors.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/JonasKlotz/vision/datasets"
	"github.com/JonasKlotz/vision/datasets/caltech"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagDataDir  = flag.String("data", "~/work/caltech", "Directory to cache downloaded dataset files.")
	flagDataset  = flag.String("dataset", "caltech101", "Dataset to scan: \"caltech101\" or \"caltech256\".")
	flagDownload = flag.Bool("download", false, "Download the dataset if not already present.")
	flagSize     = flag.Int("size", 0, "If > 0, resize and center-crop images to this size while scanning.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	ds, err := buildDataset()
	if err != nil {
		klog.Exitf("Failed to build dataset: %+v", err)
	}
	fmt.Printf("%s: %d samples in %d categories\n", ds.Name(), ds.Len(), numCategories(ds))

	seq := datasets.Parallel(datasets.NewIterator(ds))
	bar := progressbar.Default(int64(ds.Len()), "Scanning images")
	perCategory := make(map[int32]int)
	numErrors := 0
	for {
		sample, err := seq.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			klog.Warningf("%+v", err)
			numErrors++
			break
		}
		perCategory[sample.Target.Category]++
		_ = bar.Add(1)
	}
	_ = bar.Close()
	fmt.Printf("Scanned %d categories, %d errors\n", len(perCategory), numErrors)
	if numErrors > 0 {
		os.Exit(1)
	}
}

func buildDataset() (datasets.Indexed, error) {
	switch *flagDataset {
	case "caltech101":
		if *flagDownload {
			if err := caltech.DownloadCaltech101(*flagDataDir); err != nil {
				return nil, err
			}
		}
		ds, err := caltech.NewCaltech101(*flagDataDir)
		if err != nil {
			return nil, err
		}
		if *flagSize > 0 {
			ds.WithTransform(datasets.ResizeCenterCrop(*flagSize))
		}
		return ds, nil
	case "caltech256":
		if *flagDownload {
			if err := caltech.DownloadCaltech256(*flagDataDir); err != nil {
				return nil, err
			}
		}
		ds, err := caltech.NewCaltech256(*flagDataDir)
		if err != nil {
			return nil, err
		}
		if *flagSize > 0 {
			ds.WithTransform(datasets.ResizeCenterCrop(*flagSize))
		}
		return ds, nil
	}
	return nil, errors.Errorf("unknown dataset %q: valid values are %q and %q", *flagDataset, "caltech101", "caltech256")
}

func numCategories(ds datasets.Indexed) int {
	type hasCategories interface{ Categories() []string }
	if c, ok := ds.(hasCategories); ok {
		return len(c.Categories())
	}
	return 0
}
