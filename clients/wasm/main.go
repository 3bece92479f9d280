//go:build js && wasm

// ProfileStencil WASM — in-browser compositor.
// Compiled with: GOOS=js GOARCH=wasm go build -o profilestencil.wasm ./clients/wasm/
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"syscall/js"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/pkg/compositor"
	"github.com/xob0t/ProfileStencil/pkg/upload"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// One compositor per page; the browser UI is its only caller.
var comp *compositor.Compositor

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}

	comp, err = compositor.New(compositor.WithLogger(log.Named("compositor")))
	if err != nil {
		fmt.Println("ProfileStencil WASM failed:", err)
		return
	}
	// Start the badge load now so the first photo does not wait on it.
	go func() { _ = comp.Initialize(context.Background()) }()

	js.Global().Set("goProcessImage", js.FuncOf(processImage))
	js.Global().Set("goReprocess", js.FuncOf(reprocess))
	js.Global().Set("goSetLogo", js.FuncOf(setLogo))
	js.Global().Set("goStartOver", js.FuncOf(startOver))
	js.Global().Set("goPalette", js.FuncOf(palette))
	js.Global().Set("goReady", js.ValueOf(true))
	fmt.Println("ProfileStencil WASM loaded")

	// Block forever (WASM must not exit).
	select {}
}

func fail(format string, args ...any) js.Value {
	return js.ValueOf("error: " + fmt.Sprintf(format, args...))
}

func pngResult(b []byte) js.Value {
	return js.ValueOf(base64.StdEncoding.EncodeToString(b))
}

func parseRequest(s string) (*compositor.Options, error) {
	var req compositor.Request
	if s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &req); err != nil {
			return nil, err
		}
	}
	return req.Options(), nil
}

// goProcessImage(base64Data, optionsJSON) — decode a photo and return the base64 PNG.
func processImage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return fail("invalid base64: %v", err)
	}
	if _, err := upload.Validate(data); err != nil {
		return fail("%v", err)
	}

	var optsJSON string
	if len(args) > 1 && args[1].Type() == js.TypeString {
		optsJSON = args[1].String()
	}
	opts, err := parseRequest(optsJSON)
	if err != nil {
		return fail("parse options: %v", err)
	}

	res, err := comp.ProcessImage(context.Background(), bytes.NewReader(data), opts)
	if err != nil {
		return fail("%v", err)
	}
	return pngResult(res.PNG)
}

// goReprocess(optionsJSON) — re-render the current photo.
func reprocess(this js.Value, args []js.Value) any {
	var optsJSON string
	if len(args) > 0 && args[0].Type() == js.TypeString {
		optsJSON = args[0].String()
	}
	opts, err := parseRequest(optsJSON)
	if err != nil {
		return fail("parse options: %v", err)
	}

	res, err := comp.Reprocess(context.Background(), opts.Transform, opts.Text)
	if err != nil {
		return fail("%v", err)
	}
	return pngResult(res.PNG)
}

// goSetLogo(base64Data) — replace the badge logo.
func setLogo(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return fail("invalid base64: %v", err)
	}
	if _, err := upload.Validate(data); err != nil {
		return fail("%v", err)
	}
	if err := comp.SetLogo(context.Background(), bytes.NewReader(data)); err != nil {
		return fail("%v", err)
	}
	return js.ValueOf("ok")
}

// goStartOver() — drop the current photo.
func startOver(this js.Value, args []js.Value) any {
	comp.StartOver()
	return js.ValueOf("ok")
}

// goPalette() — the text colours as JSON.
func palette(this js.Value, args []js.Value) any {
	b, err := json.Marshal(compositor.Palette)
	if err != nil {
		return fail("%v", err)
	}
	return js.ValueOf(string(b))
}
