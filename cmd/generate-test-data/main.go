package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
)

// Генератор тестовых прайс-листов: создает Excel-файл со случайными
// позициями, пригодный для ручной проверки импорта и сопоставления.
// Часть позиций намеренно дублируется с искаженными наименованиями
// и разбросом цен, чтобы прогон сопоставления находил группы.

func main() {
	out := flag.String("out", "pricelist.xlsx", "путь к создаваемому файлу")
	rows := flag.Int("rows", 100, "число позиций")
	seed := flag.Int64("seed", 0, "зерно генератора (0 — случайное)")
	flag.Parse()

	gofakeit.Seed(*seed)

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Наименование", "Цена", "Валюта", "Фото", "Артикул"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		log.Fatalf("✗ Не удалось записать заголовок: %v", err)
	}

	rowIdx := 2
	for i := 0; i < *rows; i++ {
		name := productName()
		price := gofakeit.Price(10, 5000)

		writeRow(f, sheet, rowIdx, name, price)
		rowIdx++

		// Каждая третья позиция получает искаженный дубликат: другой
		// порядок слов и цена в пределах ±15%
		if i%3 == 0 {
			writeRow(f, sheet, rowIdx, shuffledName(name), price*gofakeit.Float64Range(0.85, 1.15))
			rowIdx++
		}
	}

	if err := f.SaveAs(*out); err != nil {
		log.Fatalf("✗ Не удалось сохранить файл: %v", err)
	}
	log.Printf("✅ Сгенерирован прайс-лист %s: %d строк", *out, rowIdx-2)
}

// writeRow записывает одну позицию прайс-листа
func writeRow(f *excelize.File, sheet string, rowIdx int, name string, price float64) {
	cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
	row := []interface{}{
		name,
		fmt.Sprintf("%.2f", price),
		"RUB",
		"",
		gofakeit.LetterN(2) + "-" + gofakeit.DigitN(4),
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		log.Fatalf("✗ Не удалось записать строку %d: %v", rowIdx, err)
	}
}

// productName собирает правдоподобное наименование товара
func productName() string {
	return fmt.Sprintf("%s %s %s",
		gofakeit.ProductName(),
		gofakeit.Color(),
		gofakeit.DigitN(3))
}

// shuffledName переставляет слова наименования — имитация того, как
// разные поставщики называют один и тот же товар
func shuffledName(name string) string {
	words := strings.Fields(name)
	gofakeit.ShuffleStrings(words)
	return strings.Join(words, " ")
}
