package imaging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	// Register the supported raster decoders for format sniffing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"sns-crosspost/domain/model"
	"sns-crosspost/infrastructure/logger"

	imglib "github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// Spec is one platform's maximum output bound.
type Spec struct {
	MaxWidth  int
	MaxHeight int
}

// PlatformSpecs holds the recommended image bounds per platform.
var PlatformSpecs = map[model.Platform]Spec{
	model.PlatformInstagram: {MaxWidth: 1080, MaxHeight: 1080},
	model.PlatformTwitter:   {MaxWidth: 1200, MaxHeight: 1200},
	model.PlatformFacebook:  {MaxWidth: 1200, MaxHeight: 1200},
}

// memorySafetyFactor covers decode overhead beyond the raw pixel buffers.
const memorySafetyFactor = 2.5

var (
	ErrDecode            = errors.New("image decode failed")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEncode            = errors.New("image encode failed")
)

// CapacityError signals that the resize memory estimate exceeds the budget.
type CapacityError struct {
	Required int64
	Budget   int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("image too large to resize: requires ~%d bytes, budget %d", e.Required, e.Budget)
}

var supportedFormats = map[string]struct{}{"jpeg": {}, "png": {}, "gif": {}}

// Generator produces one resized copy of a source image per platform.
type Generator struct {
	uploadDir    string
	memoryBudget int64 // bytes; 0 disables the capacity check
}

func NewGenerator(uploadDir string, memoryBudget int64) *Generator {
	return &Generator{uploadDir: uploadDir, memoryBudget: memoryBudget}
}

// Generate writes one rendition per platform under the upload dir, named
// <platform>_<baseFilename>. The source file is left in place. On any failure
// every rendition written so far is removed: no partial set survives.
//
// The scale factor min(maxW/w, maxH/h) is deliberately not clamped to 1, so
// sources smaller than a platform bound are enlarged to it.
func (g *Generator) Generate(ctx context.Context, sourcePath, baseFilename string) (map[model.Platform]model.Rendition, error) {
	srcW, srcH, err := g.sniff(sourcePath)
	if err != nil {
		return nil, err
	}

	if g.memoryBudget > 0 {
		// Source plus target RGBA buffers, with headroom for decode overhead.
		required := int64(float64(srcW) * float64(srcH) * 4 * memorySafetyFactor * 2)
		if required > g.memoryBudget {
			return nil, &CapacityError{Required: required, Budget: g.memoryBudget}
		}
	}

	src, err := imglib.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	results := make(map[model.Platform]model.Rendition, len(PlatformSpecs))
	var mu sync.Mutex
	written := make([]string, 0, len(PlatformSpecs))

	eg, ctx := errgroup.WithContext(ctx)
	for platform, spec := range PlatformSpecs {
		platform, spec := platform, spec
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outW, outH := fit(srcW, srcH, spec)
			dst := imglib.Resize(src, outW, outH, imglib.Lanczos)
			path := filepath.Join(g.uploadDir, fmt.Sprintf("%s_%s", platform, baseFilename))
			if err := imglib.Save(dst, path); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrEncode, platform, err)
			}
			mu.Lock()
			written = append(written, path)
			results[platform] = model.Rendition{
				Platform:    platform,
				ResizedPath: path,
				Width:       outW,
				Height:      outH,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.GetLogger().WithField("path", path).WithField("error", rmErr).Warn("failed removing partial rendition")
			}
		}
		return nil, err
	}
	return results, nil
}

// sniff validates that the file decodes as one of the supported raster
// formats and returns the source dimensions without a full decode.
func (g *Generator) sniff(sourcePath string) (int, int, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, ok := supportedFormats[format]; !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return cfg.Width, cfg.Height, nil
}

func fit(srcW, srcH int, spec Spec) (int, int) {
	ratio := min(float64(spec.MaxWidth)/float64(srcW), float64(spec.MaxHeight)/float64(srcH))
	outW := int(float64(srcW) * ratio)
	outH := int(float64(srcH) * ratio)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}
