package journal

import (
	"bufio"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Категории событий журнала
const (
	CategoryTrade = "trade"
	CategoryHook  = "hook"
	CategoryIdle  = "idle"
	CategoryError = "error"
	CategoryInfo  = "info"
)

// Entry одна запись журнала
type Entry struct {
	Time     time.Time           `json:"time"`
	Category string              `json:"category"`
	Message  string              `json:"message"`
	Trade    *models.TradeRecord `json:"trade,omitempty"`
}

// Journal пишет события в JSON Lines файл и держит последние записи в памяти
type Journal struct {
	path string
	file *os.File
	log  *zap.Logger

	mu     sync.Mutex
	recent []Entry
	keep   int
}

// Open открывает журнал на дозапись
func Open(path string, keep int) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", path)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(file), zapcore.InfoLevel)

	return &Journal{
		path: path,
		file: file,
		log:  zap.New(core),
		keep: keep,
	}, nil
}

// Append добавляет событие
func (j *Journal) Append(category, message string) {
	j.log.Info(message, zap.String("category", category))
	j.remember(Entry{Time: time.Now(), Category: category, Message: message})
}

// RecordTrade добавляет запись о сделке
func (j *Journal) RecordTrade(record models.TradeRecord) {
	message := TradeMessage(record)
	j.log.Info(message, zap.String("category", CategoryTrade), zap.Any("trade", record))
	j.remember(Entry{Time: time.Now(), Category: CategoryTrade, Message: message, Trade: &record})
}

// TradeMessage текст записи о сделке
func TradeMessage(r models.TradeRecord) string {
	verb := "Bought"
	if r.Side == models.SideSell {
		verb = "Sold"
	}
	return verb + " " + FormatAmount(r.Quantity) + " " + r.BaseCurrency + " for " +
		FormatAmount(r.QuoteAmount) + " " + r.TargetCurrency + " ( " + r.Symbol + " -> " + FormatAmount(r.Price) + " )"
}

func (j *Journal) remember(e Entry) {
	if j.keep <= 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recent = append(j.recent, e)
	if len(j.recent) > j.keep {
		j.recent = j.recent[len(j.recent)-j.keep:]
	}
}

// Recent последние записи, старые первыми
func (j *Journal) Recent() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.recent...)
}

// LastBuy последняя покупка символа, nil если покупок не было
func (j *Journal) LastBuy(symbol string) (*models.TradeRecord, error) {
	_ = j.log.Sync()

	file, err := os.Open(j.path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	defer file.Close()

	var last *models.TradeRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := sonic.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if e.Category == CategoryTrade && e.Trade != nil && e.Trade.Symbol == symbol && e.Trade.Side == models.SideBuy {
			last = e.Trade
		}
	}
	return last, errors.Wrap(scanner.Err(), "scan journal")
}

// Close закрывает файл журнала
func (j *Journal) Close() error {
	_ = j.log.Sync()
	return j.file.Close()
}
