package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
)

// Demo client: authenticates, opens a stream, pushes a PCM file as audio
// chunks and prints every event the server sends back.

type TokenRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

func main() {
	// First, authenticate and get a JWT token
	token, userID, err := authenticate()
	if err != nil {
		log.Fatal("Failed to authenticate:", err)
	}
	log.Printf("Successfully authenticated user: %s", userID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Connect to the WebSocket server with JWT token
	u := url.URL{Scheme: "ws", Host: serverHost(), Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Start a goroutine to read messages from the server
	go handleIncomingMessage(c, done)

	streamAudioFile(c)

	// Wait for interrupt signal
	select {
	case <-done:
		return
	case <-interrupt:
		log.Println("interrupt")
		// Cleanly close the connection by sending a close message and then
		// waiting (with timeout) for the server to close the connection.
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return
	}
}

func serverHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return "localhost:8080"
}

func authenticate() (string, string, error) {
	authReq := TokenRequest{
		Email:  envOr("SEED_USER_EMAIL", "dev@example.com"),
		APIKey: envOr("SEED_USER_API_KEY", "dev-key"),
	}

	jsonData, err := json.Marshal(authReq)
	if err != nil {
		return "", "", err
	}

	resp, err := http.Post("http://"+serverHost()+"/api/v1/auth/token", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("authentication failed: %s", string(body))
	}

	var authResp TokenResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", "", err
	}

	return authResp.Token, authResp.UserID, nil
}

func streamAudioFile(c *websocket.Conn) {
	// Open the listening stream
	log.Printf("🚀 Starting listening stream at %s", time.Now().Format("15:04:05.000"))
	startMessage := map[string]interface{}{
		"type":      "start_listening",
		"timestamp": time.Now().UnixMilli(),
		"data":      map[string]interface{}{"sample_rate": 16000, "language": "en-US"},
	}

	if err := sendJSONMessage(c, startMessage); err != nil {
		log.Printf("Error starting stream: %v", err)
		return
	}
	time.Sleep(500 * time.Millisecond)

	// Send binary audio chunks from the sample file
	audioFilePath := envOr("SAMPLE_AUDIO", filepath.Join(".", "sample_audio.pcm"))
	audioFileData, err := os.ReadFile(audioFilePath)
	if err != nil {
		log.Printf("Error reading audio file: %v", err)
		return
	}

	log.Printf("📁 Read audio file: %s (%d bytes)", audioFilePath, len(audioFileData))

	// 100ms of 16kHz 16-bit mono per chunk, sent in real time
	chunkSize := 3200
	totalChunks := (len(audioFileData) + chunkSize - 1) / chunkSize

	log.Printf("📤 Sending %d audio chunks (chunk size: %d bytes)", totalChunks, chunkSize)
	audioStartTime := time.Now()

	for i := 0; i < totalChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(audioFileData) {
			end = len(audioFileData)
		}

		if err := c.WriteMessage(websocket.BinaryMessage, audioFileData[start:end]); err != nil {
			log.Printf("Error sending audio chunk %d: %v", i, err)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	log.Printf("📤 Finished sending audio in %v", time.Since(audioStartTime))

	// Close the utterance so the server flushes whatever it buffered
	stopMessage := map[string]interface{}{
		"type":      "stop_listening",
		"timestamp": time.Now().UnixMilli(),
	}
	if err := sendJSONMessage(c, stopMessage); err != nil {
		log.Printf("Error stopping stream: %v", err)
		return
	}

	log.Printf("✅ Audio sent, waiting for the tutor's response...")
}

func sendJSONMessage(c *websocket.Conn, message map[string]interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func handleIncomingMessage(c *websocket.Conn, done chan struct{}) {
	defer close(done)
	var audioFile *os.File
	var audioResponseStartTime time.Time
	var audioChunkCount int

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}

		if messageType == websocket.TextMessage {
			var msg map[string]interface{}
			if err := json.Unmarshal(message, &msg); err != nil {
				log.Println("unmarshal error:", err)
				continue
			}

			msgType, _ := msg["type"].(string)
			switch msgType {
			case "connected":
				log.Printf("✅ Connected: %s", string(message))
			case "transcript_partial", "transcript_final":
				log.Printf("📝 %s: %s", msgType, string(message))
			case "thinking_start":
				log.Printf("🤔 Tutor is thinking...")
			case "thinking_stop":
				log.Printf("🤔 Thinking stopped: %s", string(message))
			case "response_text", "response_complete":
				log.Printf("💬 %s: %s", msgType, string(message))
			case "audio_start":
				audioResponseStartTime = time.Now()
				audioChunkCount = 0
				log.Printf("🎵 Audio response started at %s", audioResponseStartTime.Format("15:04:05.000"))
				audioDir := "audio_responses"
				if err := os.MkdirAll(audioDir, 0755); err != nil {
					log.Printf("Error creating audio response directory: %v", err)
					return
				}
				filename := fmt.Sprintf("%d.pcm", time.Now().Unix())
				audioFile, err = os.Create(filepath.Join(audioDir, filename))
				if err != nil {
					log.Printf("Error creating audio response file: %v", err)
					return
				}
				log.Printf("📁 Created audio response file: %s", filename)
			case "audio_end":
				duration := time.Since(audioResponseStartTime)
				log.Printf("📊 Audio response ended - Duration: %v, Chunks received: %d", duration, audioChunkCount)
				if audioFile != nil {
					audioFile.Close()
					audioFile = nil
				}
			case "audio_interrupted":
				log.Printf("✋ Audio interrupted: %s", string(message))
				if audioFile != nil {
					audioFile.Close()
					audioFile = nil
				}
			case "analysis_errors", "analysis_scores", "analysis_concepts":
				log.Printf("🔎 %s: %s", msgType, string(message))
			case "error":
				log.Printf("❌ Server error: %s", string(message))
			case "heartbeat":
				// quiet
			default:
				log.Printf("Received message: %s", string(message))
			}
		} else if messageType == websocket.BinaryMessage {
			audioChunkCount++
			if audioFile != nil {
				if _, err := audioFile.Write(message); err != nil {
					log.Printf("Error writing audio chunk to file: %v", err)
				}
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
