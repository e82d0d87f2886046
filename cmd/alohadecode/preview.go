package main

import (
	"encoding/binary"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lanikai/alohadecode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// previewServer streams RGB pictures of one stream to browsers. Each
// websocket message is an 8-byte header (width, height as big-endian
// uint16, RTP timestamp as uint32) followed by the packed pixels.
type previewServer struct {
	pipeline *alohadecode.Pipeline
	key      alohadecode.StreamKey
}

func (s *previewServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.indexHandler)
	mux.HandleFunc("/ws", s.websocketHandler)
	return mux
}

// indexHandler serves the viewer page
func (s *previewServer) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML)) //nolint:errcheck
}

// websocketHandler subscribes to the stream for as long as the browser
// stays connected
func (s *previewServer) websocketHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	pictures := s.pipeline.SubscribeRGB(s.key, 2)
	defer s.pipeline.UnsubscribeRGB(s.key, pictures)

	// Detect the browser going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Info("Preview client %s connected", r.RemoteAddr)
	for {
		select {
		case <-gone:
			log.Info("Preview client %s disconnected", r.RemoteAddr)
			return
		case pic, ok := <-pictures:
			if !ok {
				return
			}
			err := ws.WriteMessage(websocket.BinaryMessage, encodePicture(pic))
			pic.Release()
			if err != nil {
				log.Debug("preview: %v", err)
				return
			}
		}
	}
}

func encodePicture(pic *alohadecode.Picture) []byte {
	pixels := pic.Bytes()
	msg := make([]byte, 8+len(pixels))
	binary.BigEndian.PutUint16(msg[0:], uint16(pic.Width))
	binary.BigEndian.PutUint16(msg[2:], uint16(pic.Height))
	binary.BigEndian.PutUint32(msg[4:], pic.Timestamp)
	copy(msg[8:], pixels)
	return msg
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>alohadecode preview</title></head>
<body style="margin:0;background:#000">
<canvas id="c"></canvas>
<script>
const canvas = document.getElementById("c");
const ctx = canvas.getContext("2d");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.binaryType = "arraybuffer";
ws.onmessage = (e) => {
  const view = new DataView(e.data);
  const w = view.getUint16(0), h = view.getUint16(2);
  const rgb = new Uint8Array(e.data, 8);
  if (canvas.width !== w || canvas.height !== h) {
    canvas.width = w;
    canvas.height = h;
  }
  const img = ctx.createImageData(w, h);
  for (let i = 0, j = 0; i < rgb.length; i += 3, j += 4) {
    img.data[j] = rgb[i];
    img.data[j + 1] = rgb[i + 1];
    img.data[j + 2] = rgb[i + 2];
    img.data[j + 3] = 255;
  }
  ctx.putImageData(img, 0, 0);
};
</script>
</body>
</html>
`
