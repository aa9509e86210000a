package evidence

import (
	"fmt"
	"strings"
)

// ExtractionPrompt instructs the model to read one batch of evidence files
// into one compact line per document
const ExtractionPrompt = `Extraes datos de soportes contables de restaurantes en Colombia para una auditoría de caja.
Escribe UNA línea por documento, sin ítems individuales, NIT, direcciones, teléfonos ni impuestos.

Formato según la carpeta:
- 01_Gastos (facturas, remisiones): [carpeta] archivo | TIPO #ref | Proveedor | $TOTAL | FormaPago | DD/MM/YYYY HH:MM
- 02_Banco (una línea por movimiento): [carpeta] archivo | BANCO | Remitente | +$MONTO o -$MONTO | DD/MM HH:MM
- 03_Cierres_POS recibos: [carpeta] archivo | RECIBO #num | Concepto | $TOTAL | HH:MM | Usuario
- 03_Cierres_POS ventas (una línea por venta): [carpeta] archivo | VENTA Mesa# | $Subtotal | Propina $X | FormaPago | HH:MM
- 04_Comprobantes: [carpeta] archivo | BASE_CAJA | Entrega: nombre | Recibe: nombre | $MONTO
- 05_Pagos_Entrantes: [carpeta] archivo | PAGO_IN | Origen | $MONTO | DD/MM HH:MM
- 06_Pagos_Salientes: [carpeta] archivo | PAGO_OUT | Destino | $MONTO | DD/MM HH:MM
- Nota manuscrita: [carpeta] archivo | NOTA | Concepto | $MONTO | DD/MM
- Ilegible: [carpeta] archivo | NO LEGIBLE

Incluye siempre el número de referencia y la hora cuando sean visibles; sirven para cruzar y asignar turnos.
Montos en pesos enteros con formato $xxx,xxx.`

// AuditorPrompt instructs the model to reconcile a closing against the
// extracted evidence and answer with a single JSON object
const AuditorPrompt = `Eres auditor de caja de restaurantes en Colombia. Recibes los datos de un cierre de caja y
las líneas extraídas de sus soportes. Compara cifras, verifica gastos contra soportes y da un veredicto claro.

Reglas:
- No inventes datos. Si falta evidencia o un archivo es ilegible, dilo.
- Montos en pesos colombianos ($xxx,xxx), español sencillo.
- El dinero no aparece ni desaparece: ante cifras imposibles busca la causa real (dinero externo,
  gastos posteriores al cierre, errores de asignación entre turnos).

Carpetas de soportes: 01_Gastos facturas de proveedores; 02_Banco extractos; 03_Cierres_POS reportes
y recibos de caja; 04_Comprobantes base de caja; 05_Pagos_Entrantes pagos de clientes;
06_Pagos_Salientes pagos a proveedores; 07_Otros varios.

Qué revisar:
1. Efectivo: sistema contra declarado contra sobre contado, y explica la diferencia.
2. Gastos: busca el soporte de cada gasto por monto (tolerancia $500); varias facturas pueden sumar un recibo.
3. Transferencias: cada una debe tener su captura en 05 o 06.
4. Sobre: esperado = declarado - base dejada al siguiente turno; diferencia = contado - esperado.
5. Varios turnos el mismo día: analiza cada turno; un faltante en uno que iguala un sobrante en otro es un empalme.
6. Cadena de turnos: el declarado del turno anterior debe coincidir con el efectivo inicial de este.
7. Las observaciones del administrador son información confiable.
8. Verificación matemática: inicial + ventas efectivo - gastos - traslados ≈ efectivo sistema;
   sistema - declarado = diferencia reportada; suma de formas de pago ≈ total ingresos.
   Un error de fórmula puede ser del sistema y no del cajero.

Responde SOLO con este JSON, sin texto antes ni después:
{
  "veredicto": "CUADRA | DESCUADRE_MENOR | DESCUADRE_MAYOR",
  "resumen": "1-2 oraciones sobre qué pasó con el dinero",
  "efectivo": {"sistema": 0, "declarado": 0, "sobre": null, "diferencia": 0, "explicacion": "..."},
  "gastos": [{"concepto": "...", "monto": 0, "soporte": "archivo.jpg", "verificado": true}],
  "transferencias": [{"tipo": "Nequi", "monto": 0, "screenshot": "archivo.jpg", "verificado": true}],
  "verificacion_matematica": {"formula_efectivo": "OK o ERROR: ...", "formula_declarado": "OK o ERROR: ...", "cadena_turnos": "OK, ERROR: ... o N/A"},
  "documentos_no_legibles": ["archivo.jpg"],
  "anomalias": ["..."],
  "accion": "qué debe hacer el administrador, 1-2 oraciones"
}`

// BatchSeparator joins batch outputs in the synthesis request
const BatchSeparator = "\n\n--- SIGUIENTE LOTE ---\n\n"

// BatchHeader introduces a batch in the extraction request
func BatchHeader(batchNumber, files int) string {
	return fmt.Sprintf("LOTE %d — %d archivo(s).\nExtraer datos en FORMATO COMPACTO (una línea por documento).", batchNumber, files)
}

// FileCaption labels the i-th file (1-based) of a batch
func FileCaption(i int, name, folder string) string {
	return fmt.Sprintf("[Archivo %d: %s (carpeta: %s)]", i, name, folder)
}

// SynthesisParts returns the text parts of the synthesis request: the closing
// context, the extracted evidence and a closing reminder of the answer format
func SynthesisParts(closingContext string, batchOutputs []string) []string {
	parts := []string{closingContext}

	var nonEmpty int
	for _, out := range batchOutputs {
		if strings.TrimSpace(out) != "" {
			nonEmpty++
		}
	}
	if nonEmpty > 0 {
		parts = append(parts, fmt.Sprintf("=== DATOS EXTRAÍDOS DE IMÁGENES/PDFs (%d lotes) ===\n\n", len(batchOutputs))+
			strings.Join(batchOutputs, BatchSeparator))
	} else {
		parts = append(parts, "=== SIN DATOS EXTRAÍDOS === No hay soportes legibles para este cierre.")
	}

	parts = append(parts, "RECUERDA: Responde SOLO en formato JSON como se indica en las instrucciones del sistema.")
	return parts
}
