package spinebox

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DropArity is the number of files a drop must contain: atlas, skeleton and
// texture.
const DropArity = 3

// FileKind is what a dropped file was classified as.
type FileKind uint8

const (
	KindUnsupported FileKind = iota
	KindAtlas
	KindSkeletonJSON
	KindSkeletonBinary
	KindTexture
)

var fileKindNames = [...]string{"unsupported", "atlas", "skeleton-json", "skeleton-binary", "texture"}

func (k FileKind) String() string {
	if int(k) < len(fileKindNames) {
		return fileKindNames[k]
	}
	return fmt.Sprintf("FileKind(%d)", k)
}

// DroppedFile is one file of a drop. Either Data or Open provides the
// content; Open is used when Data is nil.
type DroppedFile struct {
	Name     string
	MIMEType string
	Data     []byte
	Open     func() (io.ReadCloser, error)
}

func (f DroppedFile) read() ([]byte, error) {
	if f.Data != nil {
		return f.Data, nil
	}
	if f.Open == nil {
		return nil, fmt.Errorf("spinebox: %s has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var textureMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

// ClassifyFile decides which bundle slot a file fills, by name first and
// then by MIME type.
func ClassifyFile(name, mimeType string) FileKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".atlas"), strings.HasSuffix(lower, ".atlas.txt"):
		return KindAtlas
	case strings.HasSuffix(lower, ".json"):
		return KindSkeletonJSON
	case isBinarySkeletonName(lower):
		return KindSkeletonBinary
	}
	if mimeType == "" {
		mimeType = mimeFromName(lower)
	}
	if textureMIMETypes[strings.ToLower(mimeType)] {
		return KindTexture
	}
	return KindUnsupported
}

func isBinarySkeletonName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".skel") || strings.HasSuffix(lower, ".skel.bytes")
}

// mimeFromName guesses a MIME type from the extension. The image types are
// pinned so the result does not depend on the host's mime tables.
func mimeFromName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case "":
		return ""
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// DroppedFilesFromFS lists the regular files at the top of fsys, sorted by
// name. Directories are skipped.
func DroppedFilesFromFS(fsys fs.FS) ([]DroppedFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("spinebox: read dropped files: %w", err)
	}
	files := make([]DroppedFile, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		files = append(files, DroppedFile{
			Name:     name,
			MIMEType: mimeFromName(name),
			Open:     func() (io.ReadCloser, error) { return fsys.Open(name) },
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Ingestor turns a drop into an inline AssetBundle.
type Ingestor struct {
	Logger *slog.Logger
	// NewID generates bundle ids. Nil means uuid.NewString.
	NewID func() string
}

func (in *Ingestor) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

// Ingest classifies and reads files into a new bundle. It fails with
// *WrongArityError unless exactly DropArity files are given. Unsupported
// files and duplicate slots are logged and skipped; the bundle then has an
// empty slot, which fails at decode time. All reads run concurrently and
// the bundle is returned only once every read has finished.
func (in *Ingestor) Ingest(ctx context.Context, files []DroppedFile) (*AssetBundle, error) {
	if len(files) != DropArity {
		return nil, &WrongArityError{Got: len(files)}
	}
	log := in.logger()

	sorted := make([]DroppedFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	b := &AssetBundle{Source: SourceInline}
	var (
		atlasFile, skelFile, texFile *DroppedFile
		format                       SkeletonFormat
	)
	claim := func(slot **DroppedFile, f *DroppedFile) {
		if *slot != nil {
			log.Warn("duplicate file for slot, ignoring", "file", f.Name, "kept", (*slot).Name)
			return
		}
		*slot = f
	}
	for i := range sorted {
		f := &sorted[i]
		switch ClassifyFile(f.Name, f.MIMEType) {
		case KindAtlas:
			claim(&atlasFile, f)
		case KindSkeletonJSON:
			if skelFile == nil {
				format = FormatJSON
			}
			claim(&skelFile, f)
		case KindSkeletonBinary:
			if skelFile == nil {
				format = FormatBinary
			}
			claim(&skelFile, f)
		case KindTexture:
			claim(&texFile, f)
		default:
			log.Warn("skipping dropped file", "error", &UnsupportedFileTypeError{Name: f.Name, MIMEType: f.MIMEType})
		}
	}

	// Each goroutine writes a disjoint field of b.
	g, ctx := errgroup.WithContext(ctx)
	readInto := func(f *DroppedFile, dst *[]byte) {
		if f == nil {
			return
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := f.read()
			if err != nil {
				return fmt.Errorf("spinebox: read %s: %w", f.Name, err)
			}
			*dst = data
			return nil
		})
	}
	readInto(atlasFile, &b.Atlas.Data)
	readInto(skelFile, &b.Skeleton.Data)
	readInto(texFile, &b.Texture.Data)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Skeleton.Format = format
	if texFile != nil {
		b.Texture.MIMEType = texFile.MIMEType
		if b.Texture.MIMEType == "" {
			b.Texture.MIMEType = mimeFromName(texFile.Name)
		}
	}
	b.Name = bundleName(files[0].Name)
	newID := in.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	b.ID = newID()

	log.Info("ingested bundle", "id", b.ID, "name", b.Name, "skeleton", b.Skeleton.Format, "complete", b.Complete())
	return b, nil
}
