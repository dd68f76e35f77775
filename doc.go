/*
Package signpair builds paired training images of SignWriting signs: a
hand drawn illustration of a sign next to the glyph of the same sign
rendered from its Formal SignWriting (FSW) string.

The pipeline runs in two steps. A ManifestBuilder walks a dataset, turns
every layout description into FSW and pairs it with the illustrations
named after the lexicon identifiers of its gloss. A Materializer then reads
the manifests and writes every illustration and its rendered sign as two
identically named square PNG files, keyed by the MD5 digest of the
illustration.

The package provides a command line interface. To check the supported
commands type:

	$ signpair --help

The API can also be used directly:

	package main

	import (
		"context"
		"log"

		"github.com/signpair/signpair"
		"github.com/signpair/signpair/render"
	)

	func main() {
		font, err := render.LoadFont("SuttonSignWritingLine.ttf", "SuttonSignWritingFill.ttf", render.DefaultFontSize)
		if err != nil {
			log.Fatal(err)
		}
		m := &signpair.Materializer{
			Compositor: signpair.NewCompositor(signpair.DefaultSize, font),
			TrainDir:   "train",
		}
		if _, err := m.Run(context.Background(), "datasets"); err != nil {
			log.Fatal(err)
		}
	}
*/
package signpair
