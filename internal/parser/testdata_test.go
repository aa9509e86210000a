package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/garyjia/cierres-audit/internal/dates"
)

const closingMessage = `[9/2/2026, 10:15:30 PM] Caja Glorieta: REPORTES GLORIETA: LA GLORIETA EXPRESS
▪️ CIERRE DE CAJA
ID: 4521
CAJA: Principal
Usuario: Juan Pérez
Inicio: 9 febrero 2026, 2:00:00 pm
Fin: 9 febrero 2026, 10:10:00 pm
▪️ CUADRE DE CAJA
Efectivo Inicial: $300,000
Ventas en Efectivo: $1,250,000
Gastos en Efectivo: $-29,500
Traslados de caja: $0
Abonos en Efectivo: $0
(=) EFECTIVO $1,520,500
Propinas: $45,000
Domicilios: $12,000
TOTAL EFECTIVO $1,577,500
▪️ DATOS DE VENTAS
Ingreso de Ventas: $2,800,000
Descuentos: $-15,000
Creditos: $0
(-) Gastos: $-29,500
TOTAL INGRESOS $2,755,500
▪️ FORMAS DE PAGO:
Efectivo: $1,250,000
Tarjeta: $1,100,000
Nequi: $450,000
Bancolombia: $0
▪️ GASTOS:
General: $-29,500 (1)
Fecha:
9 febrero 2026, 10:10:05 pm
`

const declaredMessage = `[9/2/2026, 10:16:02 PM] Caja Glorieta: REPORTES GLORIETA: LA GLORIETA EXPRESS
▪️ DINERO DECLARADO
ID: 4521
Efectivo Sistema: $1,577,500
Efectivo Declarado: $1,540,350
Efectivo Diferencia $-37,150
Tarjetas y Otros Sistema: $1,550,000
Tarjetas y Otros Declarado: $1,550,000
Tarjetas y Otros Diferencia $0
FALTANTE $37,150
`

const openingMessage = `[9/2/2026, 10:20:11 PM] Caja Glorieta: REPORTES GLORIETA: LA GLORIETA EXPRESS
▪️ APERTURA DE CAJA
Usuario: María Gómez
Valor: $300,000
`

func testClock(t *testing.T) dates.Clock {
	clock, err := dates.NewClock(dates.DefaultTimezone)
	require.NoError(t, err)
	clock.Now = func() time.Time { return time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC) }
	return clock
}

func newTestParser(t *testing.T) *Parser {
	return NewDefault(testClock(t))
}

func newTestExtractor(t *testing.T) *Extractor {
	clock := testClock(t)
	return NewExtractor(
		DefaultPatterns(),
		NewBusinessResolver(DefaultAliases, DefaultBusinesses),
		dates.NewParser(dates.DefaultTables(), clock.Location),
		clock,
	)
}
