package models

import "math"

// FourFat — четыре агрегата по хронологической серии свечей.
// Пустая серия даёт +Inf во всех полях, чтобы сравнения на вход
// гарантированно проваливались (fail closed).
type FourFat struct {
	LongAvg   float64 // средний close последних 200 свечей
	ShortAvg  float64 // средний close последних 20 свечей
	ShortMax  float64 // максимум close последних 6 свечей
	LastClose float64 // close последней свечи
}

// Max — верхний порог входа в long.
func (f FourFat) Max() float64 {
	m := f.LongAvg
	for _, v := range []float64{f.ShortAvg, f.ShortMax, f.LastClose} {
		if v > m {
			m = v
		}
	}
	return m
}

// Min — нижний порог входа в short. На пустой серии порог вырождается
// в -Inf: "value < Min" никогда не истинно, шорт без данных закрыт так же,
// как и long.
func (f FourFat) Min() float64 {
	m := f.LongAvg
	for _, v := range []float64{f.ShortAvg, f.ShortMax, f.LastClose} {
		if v < m {
			m = v
		}
	}
	if math.IsInf(m, 1) {
		return math.Inf(-1)
	}
	return m
}
