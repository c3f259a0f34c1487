package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"marketplace-assistant-be/internal/dto"

	"github.com/fatih/color"
)

const exitCommand = "/sair"

// envelope mirrors serverutils.Response with a typed payload
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) post(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	return nil
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "assistant API base URL")
	mode := flag.String("stage", "main", "pipeline mode: main or single")
	showDocs := flag.Bool("docs", false, "print the retrieved catalog lines under each reply")
	flag.Parse()

	c := &client{baseURL: strings.TrimRight(*baseURL, "/"), http: &http.Client{Timeout: 3 * time.Minute}}

	bot := color.New(color.FgCyan)
	stage := color.New(color.FgHiBlack)
	errColor := color.New(color.FgRed)
	prompt := color.New(color.FgGreen, color.Bold)

	bot.Println("Assistente do marketplace. Digite /sair para encerrar.")

	var sessionID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == exitCommand {
			break
		}

		var res envelope[dto.QueryResponse]
		err := c.post("/api/chatbot/v1/query", dto.QueryRequest{Question: line, Stage: *mode, SessionId: sessionID}, &res)
		if err != nil {
			errColor.Printf("erro: %v\n", err)
			continue
		}
		if !res.Success {
			errColor.Println(res.Message)
			continue
		}

		sessionID = res.Data.SessionId
		bot.Println(res.Data.Message)
		stage.Printf("[%s] %s\n", res.Data.Stage, strings.Join(res.Data.VisitedStages, " > "))
		if *showDocs && res.Data.RagContent != "" {
			stage.Println(res.Data.RagContent)
		}
	}

	if sessionID == "" {
		return
	}
	var ended envelope[dto.EndSessionResponse]
	if err := c.post("/api/chatbot/v1/end-session", dto.EndSessionRequest{SessionId: sessionID}, &ended); err != nil {
		errColor.Printf("erro ao encerrar a sessão: %v\n", err)
		os.Exit(1)
	}
	if !ended.Success {
		errColor.Println(ended.Message)
		os.Exit(1)
	}
	bot.Println(ended.Data.Message)
}
