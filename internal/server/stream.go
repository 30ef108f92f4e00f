package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/handrehab/internal/app"
)

// serveSessionStream serves the annotated frames of a session as MJPEG.
func serveSessionStream(w http.ResponseWriter, r *http.Request, session *app.Session) {
	sub := session.Subscribe()
	defer session.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(msg.Frame))
			if _, err := w.Write(msg.Frame); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
