// Package fixtures 提供捕获与编码测试使用的图像样例。
package fixtures

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// Solid 返回单一颜色的帧，JPEG 压缩后体积极小
func Solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: 40, G: 90, B: 160, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// PNG 返回 w x h 空白截图的 PNG 编码，与浏览器截图接口的输出格式一致
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}
