package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"

	"github.com/kolesa-team/go-webp/encoder"
	_ "github.com/kolesa-team/go-webp/decoder" // WebP デコーダ登録
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"
	xdraw "golang.org/x/image/draw"
)

// DecodeImage - PNG/JPEG/WebP を自動判別してデコードし、EXIF の向きを補正する
func DecodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	log.Printf("🔍 [Image] Decoded %s image: %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	if format == "jpeg" {
		img = applyOrientation(img, readOrientation(data))
	}
	return img, nil
}

// readOrientation - EXIF Orientation タグを読む（無ければ 1 = そのまま）
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

// applyOrientation - EXIF Orientation 値 (1-8) に従って回転・反転する
func applyOrientation(src image.Image, orientation int) image.Image {
	if orientation <= 1 {
		return src
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var dst *image.RGBA
	if orientation >= 5 {
		// 90度系は縦横が入れ替わる
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch orientation {
			case 2: // 左右反転
				dst.Set(w-1-x, y, c)
			case 3: // 180度回転
				dst.Set(w-1-x, h-1-y, c)
			case 4: // 上下反転
				dst.Set(x, h-1-y, c)
			case 5: // 転置
				dst.Set(y, x, c)
			case 6: // 時計回り90度
				dst.Set(h-1-y, x, c)
			case 7: // 逆転置
				dst.Set(h-1-y, w-1-x, c)
			case 8: // 反時計回り90度
				dst.Set(y, w-1-x, c)
			}
		}
	}

	log.Printf("🔄 [Image] Applied EXIF orientation %d", orientation)
	return dst
}

// ResizeToFit - 長辺が maxSide 以下になるよう縮小する（拡大はしない）
// CatmullRom による高品質リサンプリング
func ResizeToFit(src image.Image, maxSide int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSide {
		return src
	}

	scale := float64(maxSide) / float64(longest)
	newW := int(float64(w)*scale + 0.5)
	newH := int(float64(h)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// EncodePNG - PNG エンコード
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG - JPEG エンコード（解析用の軽量ワーキングコピー向け）
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// ConvertPNGToWebP - PNG バイナリを WebP に変換する（ダウンロード用）
func ConvertPNGToWebP(pngData []byte, quality float32) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()
	log.Printf("✅ [Image] PNG converted to WebP: %d bytes → %d bytes", len(pngData), len(webpData))
	return webpData, nil
}
