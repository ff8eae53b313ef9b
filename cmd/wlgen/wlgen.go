// wlgen generates Go constants for the interfaces, opcodes and enums
// described by Wayland protocol XML files.
package main

import (
	"bytes"
	_ "embed"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"text/template"

	"deedles.dev/oxyde/protocol"
	"github.com/sirupsen/logrus"
)

//go:embed opcodes.tmpl
var opcodesTemplate string

type Config struct {
	Package string
	Prefix  string
}

type Context struct {
	Config    Config
	Protocols []protocol.Protocol
	T         *template.Template
}

func loadXML(path string) (proto protocol.Protocol, err error) {
	file, err := os.Open(path)
	if err != nil {
		return proto, err
	}
	defer file.Close()

	return protocol.Load(file)
}

func (ctx *Context) funcs() template.FuncMap {
	return template.FuncMap{
		"ident":   ctx.ident,
		"camel":   ctx.camel,
		"comment": ctx.comment,
	}
}

func generate(ctx *Context) ([]byte, error) {
	t, err := template.New("opcodes").Funcs(ctx.funcs()).Parse(opcodesTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	ctx.T = t

	var buf bytes.Buffer
	err = t.Execute(&buf, ctx)
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("format output: %w", err)
	}
	return src, nil
}

func main() {
	out := flag.String("out", "", "output file (default stdout)")
	pkg := flag.String("pkg", "protocol", "output package name")
	prefix := flag.String("prefix", "wl_", "interface prefix name to strip")
	flag.Parse()

	ctx := Context{
		Config: Config{
			Package: *pkg,
			Prefix:  *prefix,
		},
	}
	if flag.NArg() == 0 {
		logrus.Fatal("no protocol XML files given")
	}
	for _, path := range flag.Args() {
		proto, err := loadXML(path)
		if err != nil {
			logrus.Fatalf("load %v: %v", filepath.Base(path), err)
		}
		ctx.Protocols = append(ctx.Protocols, proto)
	}

	// Validates cross-references before anything is written.
	_, err := protocol.NewSet(ctx.Protocols...)
	if err != nil {
		logrus.Fatalf("check protocols: %v", err)
	}

	src, err := generate(&ctx)
	if err != nil {
		logrus.Fatal(err)
	}

	if *out == "" {
		os.Stdout.Write(src)
		return
	}
	err = os.WriteFile(*out, src, 0644)
	if err != nil {
		logrus.Fatalf("write output: %v", err)
	}
}
