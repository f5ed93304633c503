// Пакет classification — уровни классификации данных и их порядок.
// public < internal < confidential < restricted.
package classification

import "fmt"

// Level — уровень классификации столбца или таблицы.
type Level string

const (
	Public       Level = "public"
	Internal     Level = "internal"
	Confidential Level = "confidential"
	Restricted   Level = "restricted"
)

// Default — уровень для неклассифицированных столбцов.
// Отсутствие правила никогда не расширяет доступ.
const Default = Internal

var rank = map[Level]int{
	Public:       0,
	Internal:     1,
	Confidential: 2,
	Restricted:   3,
}

// Parse разбирает строку в Level.
func Parse(s string) (Level, error) {
	l := Level(s)
	if _, ok := rank[l]; !ok {
		return "", fmt.Errorf("недопустимый уровень классификации %q, допустимые: public, internal, confidential, restricted", s)
	}
	return l, nil
}

// IsValid проверяет допустимость уровня.
func (l Level) IsValid() bool {
	_, ok := rank[l]
	return ok
}

// Rank возвращает порядковый номер уровня (-1 для недопустимого).
func (l Level) Rank() int {
	r, ok := rank[l]
	if !ok {
		return -1
	}
	return r
}

// AtLeast сообщает, не ниже ли l уровня other.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// Max возвращает максимальный уровень; для пустого набора — Default.
func Max(levels ...Level) Level {
	if len(levels) == 0 {
		return Default
	}
	highest := levels[0]
	for _, l := range levels[1:] {
		if l.Rank() > highest.Rank() {
			highest = l
		}
	}
	return highest
}

// Sensitive — уровни, выгрузки которых учитывает монитор активности.
func Sensitive() []Level {
	return []Level{Confidential, Restricted}
}
