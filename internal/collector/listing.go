package collector

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RawItem 列表页中的一个条目，字段均为原始文本（已去掉首尾空白）
type RawItem struct {
	Href     string
	Title    string
	Summary  string
	DateText string
	YearText string
}

// Listing 一页的解析结果；Skipped 为缺少必填节点而被跳过的条目数
type Listing struct {
	Items   []RawItem
	Skipped int
}

// ParseError 文档本身无法加载
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse listing: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseListing 按选择器提取条目，容器不存在时返回空结果而不是错误
func ParseListing(body []byte, sel Selectors) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Listing{}, &ParseError{Err: err}
	}

	var out Listing
	nodes := doc.Find(sel.Container).ChildrenFiltered(sel.Item)
	nodes.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if sel.MaxItems > 0 && i >= sel.MaxItems {
			return false
		}
		item, ok := extractItem(s, sel)
		if !ok {
			out.Skipped++
			return true
		}
		out.Items = append(out.Items, item)
		return true
	})
	return out, nil
}

func extractItem(s *goquery.Selection, sel Selectors) (RawItem, bool) {
	linkSel := s.Find(sel.Link).First()
	href, ok := linkSel.Attr("href")
	if !ok {
		return RawItem{}, false
	}

	titleSel := s.Find(sel.Title).First()
	if titleSel.Length() == 0 {
		return RawItem{}, false
	}

	dateSel := s.Find(sel.Date).First()
	if dateSel.Length() == 0 {
		return RawItem{}, false
	}

	item := RawItem{
		Href:     strings.TrimSpace(href),
		Title:    cleanText(titleSel.Text()),
		DateText: cleanText(dateSel.Text()),
	}

	summarySel := s.Find(sel.Summary).First()
	if summarySel.Length() == 0 {
		if !sel.SummaryOptional {
			return RawItem{}, false
		}
	} else {
		item.Summary = cleanText(summarySel.Text())
	}

	if sel.Year != "" {
		item.YearText = cleanText(s.Find(sel.Year).First().Text())
	}
	return item, true
}

// cleanText 合并内部空白并去掉首尾空白（列表页的标题常带换行和缩进）
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
