package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/dataset"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/tabular"
)

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	content := `
set: ./images
db: ./db
prefix: IMG_
suffix: .jpg
compression: lz4
labels:
  path: labels.csv
  delimiter: ";"
  header: false
  pairing: external_id
  dict:
    cat: "0"
    dog: "1"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	conf, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig() error = %v", err)
	}

	cfg, err := conf.datasetConfig()
	if err != nil {
		t.Fatalf("datasetConfig() error = %v", err)
	}

	if cfg.SetPath != "./images" || cfg.DBDir != "./db" {
		t.Errorf("unexpected paths %q %q", cfg.SetPath, cfg.DBDir)
	}
	if cfg.FilePrefix != "IMG_" || cfg.FileSuffix != ".jpg" {
		t.Errorf("unexpected prefix/suffix %q %q", cfg.FilePrefix, cfg.FileSuffix)
	}
	if cfg.Compression != core.CompressionLZ4 {
		t.Errorf("Compression = %v, want lz4", cfg.Compression)
	}
	if cfg.LabelDelimiter != ";" || !cfg.NoLabelHeader {
		t.Errorf("unexpected label options %q %v", cfg.LabelDelimiter, cfg.NoLabelHeader)
	}
	if cfg.Pairing != dataset.PairByExternalID {
		t.Errorf("Pairing = %v, want external_id", cfg.Pairing)
	}
	if !cfg.LabelDict["dog"].Equal(feature.Int(1)) {
		t.Errorf("LabelDict[dog] = %v", cfg.LabelDict["dog"])
	}
}

func TestFileConfigDefaults(t *testing.T) {
	cfg, err := fileConfig{Set: "s"}.datasetConfig()
	if err != nil {
		t.Fatalf("datasetConfig() error = %v", err)
	}
	if cfg.NoLabelHeader || cfg.LabelDelimiter != "," || cfg.Pairing != dataset.PairPositional {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	if _, err := (fileConfig{Set: "s", Compression: "gzip"}).datasetConfig(); err == nil {
		t.Error("expected error for unknown compression")
	}
}

func TestDumpOverwritesByDefault(t *testing.T) {
	flag := dumpCmd.Flags().Lookup("force")
	if flag == nil {
		t.Fatal("dump has no --force flag")
	}
	if flag.DefValue != "true" {
		t.Errorf("--force default = %s, want true", flag.DefValue)
	}
	if copyFlag := copyCmd.Flags().Lookup("force"); copyFlag.DefValue != "false" {
		t.Errorf("copy --force default = %s, want false", copyFlag.DefValue)
	}
}

func TestReadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	if err := os.WriteFile(path, []byte("1\ncat\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	values, err := readValues(path)
	if err != nil {
		t.Fatalf("readValues() error = %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("got %d values, want 3", len(values))
	}
	if !values[0].Equal(feature.Int(1)) || !values[1].Equal(feature.String("cat")) {
		t.Errorf("unexpected scalars %v %v", values[0], values[1])
	}
	if values[2].Width() != 3 {
		t.Errorf("vector width = %d, want 3", values[2].Width())
	}
}

func TestPrintMatrixCSV(t *testing.T) {
	m := tabular.NewMatrix(2, 3)
	m.Set(0, 0, 1.5)
	m.Set(1, 2, 4)

	header := matrixHeader([]tabular.Column{{Name: "mean", Width: 1}, {Name: "hist", Width: 2}})

	var buf bytes.Buffer
	if err := printMatrixCSV(&buf, header, []string{"a", "b"}, m); err != nil {
		t.Fatalf("printMatrixCSV() error = %v", err)
	}

	want := "external_id,mean,hist[0],hist[1]\na,1.5,0,0\nb,0,0,4\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !strings.HasPrefix(buf.String(), "external_id") {
		t.Error("missing header")
	}
}
