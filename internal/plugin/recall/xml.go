package recall

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rcliao/agentcore/internal/model"
)

type memoriesReply struct {
	Memories []memoryReply `xml:"memory"`
}

type memoryReply struct {
	Category   string `xml:"category"`
	Content    string `xml:"content"`
	Confidence string `xml:"confidence"`
}

type summaryReply struct {
	Text   string `xml:"text"`
	Topics string `xml:"topics"`
}

// extracted is a parsed and validated memory candidate.
type extracted struct {
	Category   model.Category
	Content    string
	Confidence float64
}

var (
	memoriesBlock = regexp.MustCompile(`(?s)<memories>.*?</memories>|<memories\s*/>`)
	summaryBlock  = regexp.MustCompile(`(?s)<summary>.*?</summary>`)
)

// parseMemories reads the <memories> block of a model reply. Prose around the
// block is ignored. Entries with an unknown category, no content or an
// unparseable confidence are dropped.
func parseMemories(reply string) ([]extracted, error) {
	block := memoriesBlock.FindString(reply)
	if block == "" {
		return nil, fmt.Errorf("%w: no <memories> element in reply", model.ErrXMLParse)
	}
	var parsed memoriesReply
	if err := xml.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrXMLParse, err)
	}

	out := []extracted{}
	for _, m := range parsed.Memories {
		cat := model.Category(strings.ToLower(strings.TrimSpace(m.Category)))
		content := strings.TrimSpace(m.Content)
		conf, err := strconv.ParseFloat(strings.TrimSpace(m.Confidence), 64)
		if !model.ValidCategories[cat] || content == "" || err != nil || conf < 0 || conf > 1 {
			continue
		}
		out = append(out, extracted{Category: cat, Content: content, Confidence: conf})
	}
	return out, nil
}

// parseSummary reads the <summary> block of a model reply.
func parseSummary(reply string) (string, []string, error) {
	block := summaryBlock.FindString(reply)
	if block == "" {
		return "", nil, fmt.Errorf("%w: no <summary> element in reply", model.ErrXMLParse)
	}
	var parsed summaryReply
	if err := xml.Unmarshal([]byte(block), &parsed); err != nil {
		return "", nil, fmt.Errorf("%w: %v", model.ErrXMLParse, err)
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", nil, fmt.Errorf("%w: empty <text> in summary", model.ErrResponseParse)
	}

	var topics []string
	for _, t := range strings.Split(parsed.Topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return text, topics, nil
}
