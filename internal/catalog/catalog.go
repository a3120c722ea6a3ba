// Package catalog holds the static seed library, the calendar mottos and the
// descriptors of the embedded third-party sites.
package catalog

import (
	"time"

	"github.com/hyperengineering/pavilion/internal/types"
)

// TrustedSourceDomain is the classical-text site search results are scoped to.
const TrustedSourceDomain = "5000yan.com"

// sandbox is the capability set granted to every embedded frame.
var sandbox = []string{"allow-scripts", "allow-same-origin", "allow-popups", "allow-forms"}

var seed = []types.Book{
	{ID: "1", Title: "道德经", Author: "老子", Category: types.CategoryPhilosophy,
		Description: "道家哲学思想的重要来源，被誉为万经之王。", CoverColor: "bg-stone-700",
		SourceURL: "https://www.5000yan.com/daodejing/"},
	{ID: "2", Title: "论语", Author: "孔子弟子及再传弟子", Category: types.CategoryPhilosophy,
		Description: "儒家经典之一，主要记录孔子及其弟子的言行。", CoverColor: "bg-amber-800",
		SourceURL: "https://www.5000yan.com/lunyu/"},
	{ID: "3", Title: "金刚经", Author: "鸠摩罗什 译", Category: types.CategoryBuddhism,
		Description: "大乘佛教般若部重要经典，主张“无相”布施。", CoverColor: "bg-amber-600",
		SourceURL: "https://www.5000yan.com/jingangjing/"},
	{ID: "4", Title: "周易", Author: "姬昌", Category: types.CategoryIChing,
		Description: "群经之首，设卦观象，蕴含天地万物变易之理。", CoverColor: "bg-indigo-900",
		SourceURL: "https://www.5000yan.com/zhouyi/"},
	{ID: "5", Title: "孟子", Author: "孟子", Category: types.CategoryPhilosophy,
		Description: "儒家经典，记载了孟子的治国思想和政治策略。", CoverColor: "bg-slate-700",
		SourceURL: "https://www.5000yan.com/mengzi/"},
	{ID: "6", Title: "传习录", Author: "王阳明", Category: types.CategoryPhilosophy,
		Description: "心学集大成之作，主张“知行合一”与“致良知”。", CoverColor: "bg-red-900",
		SourceURL: "https://www.5000yan.com/chuanxilu/"},
	{ID: "7", Title: "心经", Author: "玄奘 译", Category: types.CategoryBuddhism,
		Description: "佛教经论中文字最为简炼，义理最为丰富的一部经典。", CoverColor: "bg-yellow-700",
		SourceURL: "https://www.5000yan.com/xinjing/"},
	{ID: "8", Title: "庄子", Author: "庄周", Category: types.CategoryPhilosophy,
		Description: "道家代表作，汪洋恣肆，充满了浪漫主义色彩与寓言故事。", CoverColor: "bg-emerald-800",
		SourceURL: "https://www.5000yan.com/zhuangzi/"},
	{ID: "9", Title: "六祖坛经", Author: "惠能", Category: types.CategoryBuddhism,
		Description: "禅宗代表经典，记录六祖惠能的生平与说法。", CoverColor: "bg-orange-800",
		SourceURL: "https://www.5000yan.com/tanjing/"},
	{ID: "10", Title: "鬼谷子", Author: "鬼谷子", Category: types.CategoryPhilosophy,
		Description: "纵横家之鼻祖，谋略之奇书。", CoverColor: "bg-zinc-800",
		SourceURL: "https://www.5000yan.com/guiguzi/"},
	{ID: "11", Title: "菜根谭", Author: "洪应明", Category: types.CategoryPhilosophy,
		Description: "处世修养之奇书，融合儒释道三家精髓。", CoverColor: "bg-lime-900",
		SourceURL: "https://www.5000yan.com/caigentan/"},
	{ID: "12", Title: "史记", Author: "司马迁", Category: types.CategoryHistory,
		Description: "中国第一部纪传体通史，被鲁迅誉为“史家之绝唱”。", CoverColor: "bg-stone-800",
		SourceURL: "https://www.5000yan.com/shiji/"},
	{ID: "13", Title: "孙子兵法", Author: "孙武", Category: types.CategoryHistory,
		Description: "兵家圣典，兵学鼻祖。", CoverColor: "bg-red-800",
		SourceURL: "https://www.5000yan.com/sunzibingfa/"},
	{ID: "14", Title: "三十六计", Author: "未知", Category: types.CategoryHistory,
		Description: "根据中国古代军事思想和丰富的斗争经验总结而成的兵书。", CoverColor: "bg-neutral-800",
		SourceURL: "https://www.5000yan.com/36ji/"},
}

var mottos = []string{
	"天行健，君子以自强不息。",
	"地势坤，君子以厚德载物。",
	"知行合一，致良知。",
	"学而不思则罔，思而不学则殆。",
	"上善若水，水利万物而不争。",
	"不积跬步，无以至千里。",
	"满招损，谦受益。",
	"路漫漫其修远兮，吾将上下而求索。",
}

// Books returns a copy of the seed library.
func Books() []types.Book {
	out := make([]types.Book, len(seed))
	copy(out, seed)
	return out
}

// Filter returns the seed books in the given category, or all of them
// when category is types.CategoryAll or empty.
func Filter(category string) []types.Book {
	if category == "" || category == types.CategoryAll {
		return Books()
	}
	out := []types.Book{}
	for _, b := range seed {
		if string(b.Category) == category {
			out = append(out, b)
		}
	}
	return out
}

// Lookup finds a seed book by ID.
func Lookup(id string) (types.Book, bool) {
	for _, b := range seed {
		if b.ID == id {
			return b, true
		}
	}
	return types.Book{}, false
}

// Motto picks the calendar motto for a day. It is stable for the whole day.
func Motto(day time.Time) string {
	return mottos[day.Day()%len(mottos)]
}

// LibraryFrame is the full classical-text library site.
func LibraryFrame() types.Frame {
	return types.Frame{Title: "5000yan Library", URL: "https://www.5000yan.com/", Sandbox: sandboxCopy()}
}

// CommunityChatFrame is the public chat site shown beside the reader.
func CommunityChatFrame() types.Frame {
	return types.Frame{Title: "LM Area Chat", URL: "https://chat.lmsys.org/", Sandbox: sandboxCopy()}
}

// BookFrame embeds a book's source page. Books without a source get no frame.
func BookFrame(b types.Book) *types.Frame {
	if b.SourceURL == "" {
		return nil
	}
	return &types.Frame{Title: b.Title, URL: b.SourceURL, Sandbox: sandboxCopy()}
}

func sandboxCopy() []string {
	out := make([]string, len(sandbox))
	copy(out, sandbox)
	return out
}
