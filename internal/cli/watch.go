package cli

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchCmd lets an operator point voicecore at a local folder and have
// every audio file dropped into it uploaded to a running server
// automatically — grounded on the teacher's own folder-watcher CLI,
// aimed here at our /api/v1/audio/upload endpoint instead of its upload route.
var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Watch a folder and upload new audio files to a voicecore server",
	Args:  cobra.ExactArgs(1),
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().String("server", "", "voicecore server base URL, e.g. http://localhost:8080")
	watchCmd.Flags().String("token", "", "bearer token for the target server")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	initClientConfig()

	folder := args[0]
	absPath, err := filepath.Abs(folder)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		log.Fatalf("Folder does not exist: %s", absPath)
	}

	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if err := saveClientConfig(server, token, absPath); err != nil {
		fmt.Printf("Warning: failed to save watch configuration: %v\n", err)
	}

	cfg := getClientConfig()
	if cfg.ServerURL == "" {
		log.Fatal("No server URL configured; pass --server or set it once and rerun")
	}

	watchFolder(absPath, cfg)
}

func watchFolder(path string, cfg *clientConfig) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal(err)
	}
	defer watcher.Close()

	timers := make(map[string]*time.Timer)
	var mu sync.Mutex
	done := make(chan bool)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					ext := strings.ToLower(filepath.Ext(event.Name))
					if !isAudioFile(ext) {
						continue
					}

					mu.Lock()
					if t, exists := timers[event.Name]; exists {
						t.Stop()
					}
					timers[event.Name] = time.AfterFunc(2*time.Second, func() {
						mu.Lock()
						delete(timers, event.Name)
						mu.Unlock()

						log.Printf("Uploading %s...\n", event.Name)
						if err := uploadFile(cfg, event.Name); err != nil {
							log.Printf("Failed to upload %s: %v\n", event.Name, err)
						} else {
							log.Printf("Successfully uploaded %s\n", event.Name)
						}
					})
					mu.Unlock()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println("error:", err)
			}
		}
	}()

	if err := watcher.Add(path); err != nil {
		log.Fatal(err)
	}
	log.Printf("Watching %s for new audio files...\n", path)
	<-done
}

func isAudioFile(ext string) bool {
	switch ext {
	case ".mp3", ".wav", ".m4a", ".flac", ".ogg", ".aac", ".wma":
		return true
	default:
		return false
	}
}

// uploadFile POSTs filePath as multipart form data to the target
// server's audio upload endpoint, the client-side half of the
// processor's ingest pipeline.
func uploadFile(cfg *clientConfig, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(cfg.ServerURL, "/")+"/api/v1/audio/upload", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
