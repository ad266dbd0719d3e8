package converter

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"github.com/blezek/tga"
	_ "github.com/ftrvxmtrx/tga"
	_ "github.com/oov/psd"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const defaultSkinSize = 512

type textureCache struct {
	srcDir   string
	textures map[string]*textureInfo
}

type textureInfo struct {
	name string
	img  image.Image
	err  error
}

func newTextureCache(srcDir string) *textureCache {
	return &textureCache{srcDir: srcDir, textures: map[string]*textureInfo{}}
}

func (c *textureCache) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.srcDir, name)
}

func (c *textureCache) get(name string) *textureInfo {
	if t, ok := c.textures[name]; ok {
		return t
	}
	t := &textureInfo{name: name}
	c.textures[name] = t
	return t
}

func (c *textureCache) getImage(name string) (image.Image, error) {
	t := c.get(name)
	if t.img != nil || t.err != nil {
		return t.img, t.err
	}

	f, err := os.Open(c.path(t.name))
	if err != nil {
		t.err = err
		return nil, err
	}
	defer f.Close()

	t.img, _, t.err = image.Decode(f)
	if t.err != nil && strings.ToLower(filepath.Ext(t.name)) == ".tga" {
		// retry
		f.Seek(0, io.SeekStart)
		t.img, t.err = tga.Decode(f)
	}
	return t.img, t.err
}

// skinSize returns the MD2 skin size: the configured size, else the size
// of the texture, else 512x512.
func (c *textureCache) skinSize(conf *Config) (int, int) {
	if conf.SkinWidth > 0 && conf.SkinHeight > 0 {
		return conf.SkinWidth, conf.SkinHeight
	}
	if conf.Texture != "" {
		if img, err := c.getImage(conf.Texture); err == nil {
			b := img.Bounds()
			return b.Dx(), b.Dy()
		}
	}
	return defaultSkinSize, defaultSkinSize
}

func textureMimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "image/png"
}

// encodeTexture returns the texture as PNG or JPEG bytes. Textures are
// resampled to width x height when both are positive and differ from the
// source size. JPEG and PNG files that need no resampling are copied.
func (c *textureCache) encodeTexture(name string, width, height int) (io.Reader, string, error) {
	mime := textureMimeType(name)
	ext := strings.ToLower(filepath.Ext(name))
	img, err := c.getImage(name)
	if err != nil {
		return nil, "", err
	}
	rect := img.Bounds()
	resize := width > 0 && height > 0 && (rect.Dx() != width || rect.Dy() != height)

	if !resize && (ext == ".png" || ext == ".jpg" || ext == ".jpeg") {
		data, err := os.ReadFile(c.path(name))
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), mime, nil
	}

	if resize {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
		img = dst
	}

	w := new(bytes.Buffer)
	if mime == "image/png" {
		err = png.Encode(w, img)
	} else {
		err = jpeg.Encode(w, img, nil)
	}
	if err != nil {
		return nil, "", err
	}
	return w, mime, nil
}
