package importer

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ListingRow строка прайс-листа поставщика после разбора Excel-файла
type ListingRow struct {
	RawName  string            // Исходное наименование позиции
	Price    float64           // Цена за единицу
	Currency string            // Валюта (по умолчанию валюта файла)
	ImageURL string            // Ссылка на изображение или страницу товара
	Extra    map[string]string // Прочие колонки (артикул, упаковка и т.п.)
}

// ParseResult результат разбора прайс-листа
type ParseResult struct {
	Rows        []ListingRow
	SkippedRows int      // строки без наименования или с некорректной ценой
	Warnings    []string // причины пропуска первых строк для диагностики
}

// priceListColumns индексы распознанных колонок прайс-листа
type priceListColumns struct {
	name     int
	price    int
	currency int
	imageURL int
	extras   map[string]int // заголовок -> индекс для нераспознанных колонок
}

// maxWarnings ограничивает диагностику, чтобы не раздувать ответ
// на файлах с тысячами битых строк
const maxWarnings = 20

// ParsePriceList разбирает Excel-прайс поставщика из потока.
// Колонки распознаются по ключевым словам заголовка: поставщики
// присылают файлы с разным порядком и языком колонок.
func ParsePriceList(r io.Reader, defaultCurrency string) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть Excel-файл: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("в файле нет листов")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать строки: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("файл слишком короткий: нужна строка заголовков и хотя бы одна строка данных")
	}

	cols := findPriceListColumns(rows[0])
	if cols.name == -1 {
		return nil, fmt.Errorf("в заголовках не найдена колонка наименования")
	}
	if cols.price == -1 {
		return nil, fmt.Errorf("в заголовках не найдена колонка цены")
	}

	log.Printf("Колонки прайс-листа: наименование=%d, цена=%d, валюта=%d, изображение=%d",
		cols.name, cols.price, cols.currency, cols.imageURL)

	result := &ParseResult{}

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if isEmptyRow(row) {
			continue
		}

		listing, reason := parseListingRow(row, cols, defaultCurrency)
		if reason != "" {
			result.SkippedRows++
			if len(result.Warnings) < maxWarnings {
				result.Warnings = append(result.Warnings, fmt.Sprintf("строка %d: %s", rowIdx+1, reason))
			}
			continue
		}

		result.Rows = append(result.Rows, listing)
	}

	log.Printf("Прайс-лист разобран: %d позиций, %d строк пропущено", len(result.Rows), result.SkippedRows)
	return result, nil
}

// parseListingRow извлекает позицию из строки данных.
// Непустая причина пропуска означает, что строка исключается из импорта.
func parseListingRow(row []string, cols priceListColumns, defaultCurrency string) (ListingRow, string) {
	listing := ListingRow{Currency: defaultCurrency}

	if cols.name < len(row) {
		listing.RawName = strings.TrimSpace(row[cols.name])
	}
	if listing.RawName == "" {
		return ListingRow{}, "пустое наименование"
	}

	priceCell := ""
	if cols.price < len(row) {
		priceCell = strings.TrimSpace(row[cols.price])
	}
	price, err := parsePrice(priceCell)
	if err != nil {
		return ListingRow{}, fmt.Sprintf("некорректная цена %q", priceCell)
	}
	if price <= 0 {
		return ListingRow{}, fmt.Sprintf("неположительная цена %v", price)
	}
	listing.Price = price

	if cols.currency >= 0 && cols.currency < len(row) {
		if currency := strings.ToUpper(strings.TrimSpace(row[cols.currency])); currency != "" {
			listing.Currency = currency
		}
	}
	if cols.imageURL >= 0 && cols.imageURL < len(row) {
		listing.ImageURL = strings.TrimSpace(row[cols.imageURL])
	}

	for header, idx := range cols.extras {
		if idx < len(row) {
			if value := strings.TrimSpace(row[idx]); value != "" {
				if listing.Extra == nil {
					listing.Extra = make(map[string]string)
				}
				listing.Extra[header] = value
			}
		}
	}

	return listing, ""
}

// findPriceListColumns определяет индексы колонок по ключевым словам заголовков
func findPriceListColumns(headers []string) priceListColumns {
	cols := priceListColumns{
		name:     -1,
		price:    -1,
		currency: -1,
		imageURL: -1,
		extras:   make(map[string]int),
	}

	for i, header := range headers {
		h := strings.TrimSpace(strings.ToLower(header))
		if h == "" {
			continue
		}

		switch {
		case cols.name == -1 && containsAny(h, "наименование", "название", "товар", "позиция", "name", "product", "описание"):
			cols.name = i
		case cols.price == -1 && containsAny(h, "цена", "стоимость", "price", "cost"):
			cols.price = i
		case cols.currency == -1 && containsAny(h, "валюта", "currency"):
			cols.currency = i
		case cols.imageURL == -1 && containsAny(h, "изображение", "фото", "картинка", "image", "photo", "ссылка", "url"):
			cols.imageURL = i
		default:
			cols.extras[strings.TrimSpace(header)] = i
		}
	}

	return cols
}

// parsePrice разбирает цену с учетом запятой как десятичного разделителя
// и пробелов-разделителей тысяч
func parsePrice(cell string) (float64, error) {
	if cell == "" {
		return 0, fmt.Errorf("пустая ячейка цены")
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ':
			return -1
		case ',':
			return '.'
		default:
			return r
		}
	}, cell)

	return strconv.ParseFloat(cleaned, 64)
}

// isEmptyRow сообщает, пуста ли строка данных
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// containsAny сообщает, содержит ли заголовок хотя бы одно ключевое слово
func containsAny(header string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(header, keyword) {
			return true
		}
	}
	return false
}
