package summarize

import (
	"fmt"
	"strings"
	"time"
)

// Section markers of the fixed summary layout. The email renderer keys its
// HTML headings off these exact strings, so they must stay in sync with the
// prompt template below.
const (
	SectionTitle       = "# 會議摘要"
	SectionKeyPoints   = "## 會議重點"
	SectionDecisions   = "## 決議事項"
	SectionActionItems = "## 待辦事項 (Action Items)"
)

const systemPrompt = "你是一位專業的會議記錄員，擅長將會議內容整理成結構清晰的摘要。"

const promptTemplate = `你是一位專業的會議記錄員。請根據以下會議逐字稿，生成一份結構清晰的會議摘要。

## 會議資訊
- 會議室：%[1]s
- 開始時間：%[2]s
- 結束時間：%[3]s
- 與會者：%[4]s

## 逐字稿
%[5]s

---

請按照以下格式生成摘要：

# 會議摘要

日期：%[6]s
地點：%[1]s
與會者：%[7]s

---

## 會議重點
（列出 3-5 個主要討論重點）

## 決議事項
（列出會議中達成的共識或決定）

## 待辦事項 (Action Items)
| 項目 | 負責人 | 期限 |
|-----|-------|-----|
（如果逐字稿中有提到具體的待辦事項、負責人和期限，請列出）

---
此摘要由 AI 自動生成，如有疏漏請以實際會議內容為準。

注意事項：
1. 使用繁體中文
2. 保持專業、客觀的語氣，不使用表情符號等裝飾符號
3. 只提取逐字稿中實際討論的內容
4. 如果某些資訊（如負責人、期限）在逐字稿中未提及，可以標註「待確認」
5. 如果沒有具體的待辦事項，請直接說明「本次會議無具體待辦事項」，不要編造
6. 如果逐字稿內容很短或資訊不足，請如實說明
`

const timeLayout = "2006-01-02 15:04"

// buildPrompt substitutes meeting metadata and the transcript into the fixed
// summary skeleton.
func buildPrompt(req Request) string {
	start := req.StartTime.Format(timeLayout)
	end := "未知"
	if req.EndTime != nil {
		end = req.EndTime.Format(timeLayout)
	}

	names := make([]string, 0, len(req.Attendees))
	full := make([]string, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		names = append(names, a.Name)
		full = append(full, fmt.Sprintf("%s (%s)", a.Name, a.Email))
	}

	return fmt.Sprintf(promptTemplate,
		req.Room,
		start,
		end,
		strings.Join(full, ", "),
		req.Transcript,
		dateRange(req.StartTime, req.EndTime),
		strings.Join(names, ", "),
	)
}

func dateRange(start time.Time, end *time.Time) string {
	if end == nil {
		return start.Format(timeLayout)
	}
	return start.Format(timeLayout) + " - " + end.Format(timeLayout)
}
