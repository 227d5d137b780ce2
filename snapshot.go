/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/scrawl/internal/export"
	"github.com/Seednode/scrawl/room"
)

func serveRendered(cfg *Config, w http.ResponseWriter, r *http.Request, kind, contentType string, data []byte, startTime time.Time) error {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	written, err := w.Write(data)
	if err != nil {
		return err
	}

	logf(cfg, "SERVE: %s (%s) to %s in %s",
		kind,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)

	return nil
}

func serveSnapshot(cfg *Config, rooms *room.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		roomID := ps.ByName("roomid")

		strokes, ok := rooms.Canvas(roomID)
		if !ok {
			writeError(cfg, w, http.StatusNotFound, "room not found")

			return
		}

		var buf bytes.Buffer
		if err := export.PNG(&buf, strokes, cfg.snapshotSize); err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "snapshot rendering failed")
			errs <- err

			return
		}

		if err := serveRendered(cfg, w, r, "Snapshot of room "+roomID, "image/png", buf.Bytes(), startTime); err != nil {
			errs <- err
		}
	}
}

func serveExport(cfg *Config, rooms *room.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		roomID := ps.ByName("roomid")

		strokes, ok := rooms.Canvas(roomID)
		if !ok {
			writeError(cfg, w, http.StatusNotFound, "room not found")

			return
		}

		var buf bytes.Buffer
		if err := export.PDF(&buf, "scrawl room "+roomID, strokes); err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "export failed")
			errs <- err

			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="scrawl-`+roomID+`.pdf"`)

		if err := serveRendered(cfg, w, r, "PDF export of room "+roomID, "application/pdf", buf.Bytes(), startTime); err != nil {
			errs <- err
		}
	}
}
